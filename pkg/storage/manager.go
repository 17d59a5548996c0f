package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const reportSuffix = ".json"

// Manager stores run reports in one directory
type Manager struct {
	outputDir string
}

// NewManager creates a new storage manager
func NewManager(outputDir string) (*Manager, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("report directory is empty")
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{outputDir: outputDir}, nil
}

// SaveReport writes r and returns the file's path
func (m *Manager) SaveReport(r *Report) (string, error) {
	name := fmt.Sprintf("pxfollow-%s-%s-%s%s",
		r.Strategy, r.Direction, r.StartedAt.Format("20060102-150405"), reportSuffix)
	filename := filepath.Join(m.outputDir, name)

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	tempFile := filename + ".tmp"
	if err := os.WriteFile(tempFile, append(data, '\n'), 0644); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return filename, nil
}

// LoadReport reads a report written by SaveReport
func (m *Manager) LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", path, err)
	}
	return &r, nil
}

// ListReports returns the stored report paths, oldest first
func (m *Manager) ListReports() ([]string, error) {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var reports []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "pxfollow-") || !strings.HasSuffix(name, reportSuffix) {
			continue
		}
		reports = append(reports, filepath.Join(m.outputDir, name))
	}
	// names end in the start time, so the per-strategy order is chronological
	sort.Strings(reports)
	return reports, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}
