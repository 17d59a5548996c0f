package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"pxfollow/pkg/logger"
	"pxfollow/pkg/pixiv"
)

// CurrentVersion is the journal file format version
const CurrentVersion = 1

// Checkpoint is the journal of one subject and target visibility
type Checkpoint struct {
	UserID    string `json:"user_id"`
	Direction string `json:"direction"`
	// Completed maps switched user IDs to their display names
	Completed      map[string]string `json:"completed"`
	TotalCompleted int               `json:"total_completed"`
	Runs           int               `json:"runs"`
	LastFailed     int               `json:"last_failed"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	Version        int               `json:"version"`
}

// IsCompleted reports whether userID was already switched
func (c *Checkpoint) IsCompleted(userID string) bool {
	_, ok := c.Completed[userID]
	return ok
}

// Manager handles checkpoint operations
type Manager struct {
	checkpointPath string
	userID         string
	direction      pixiv.Visibility
	logger         logger.Logger
}

// NewManager creates a manager for the journal of userID switching follows to direction
func NewManager(userID string, direction pixiv.Visibility) (*Manager, error) {
	dataDir, err := getDataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}
	return NewManagerInDir(filepath.Join(dataDir, "checkpoints"), userID, direction)
}

// NewManagerInDir is NewManager with an explicit checkpoint directory
func NewManagerInDir(dir, userID string, direction pixiv.Visibility) (*Manager, error) {
	if userID == "" {
		return nil, fmt.Errorf("checkpoint needs a user ID")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	name := fmt.Sprintf("%s.%s.checkpoint.json", filepath.Base(userID), direction)
	return &Manager{
		checkpointPath: filepath.Join(dir, name),
		userID:         userID,
		direction:      direction,
		logger:         logger.GetLogger(),
	}, nil
}

// SetLogger replaces the manager's logger
func (m *Manager) SetLogger(log logger.Logger) {
	if log != nil {
		m.logger = log
	}
}

// Path returns the journal file location
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Create starts a new, empty journal and writes it
func (m *Manager) Create() (*Checkpoint, error) {
	now := time.Now()
	checkpoint := &Checkpoint{
		UserID:    m.userID,
		Direction: m.direction.String(),
		Completed: make(map[string]string),
		Runs:      1,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   CurrentVersion,
	}

	if err := m.Save(checkpoint); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint created", map[string]interface{}{
		"user_id":   m.userID,
		"direction": m.direction.String(),
		"path":      m.checkpointPath,
	})
	return checkpoint, nil
}

// Load reads the journal. It returns nil, nil when none exists.
func (m *Manager) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}

	var checkpoint Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if checkpoint.Version > CurrentVersion {
		return nil, fmt.Errorf("checkpoint version %d is newer than supported version %d", checkpoint.Version, CurrentVersion)
	}
	if checkpoint.UserID != m.userID || checkpoint.Direction != m.direction.String() {
		return nil, fmt.Errorf("checkpoint at %s belongs to user %s (%s)", m.checkpointPath, checkpoint.UserID, checkpoint.Direction)
	}
	if checkpoint.Completed == nil {
		checkpoint.Completed = make(map[string]string)
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"user_id":         checkpoint.UserID,
		"direction":       checkpoint.Direction,
		"total_completed": checkpoint.TotalCompleted,
		"updated_at":      checkpoint.UpdatedAt,
	})
	return &checkpoint, nil
}

// Save writes the journal atomically
func (m *Manager) Save(checkpoint *Checkpoint) error {
	checkpoint.UpdatedAt = time.Now()

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(checkpoint); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}
	return nil
}

// Delete removes the journal file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	m.logger.Debug("Checkpoint deleted")
	return nil
}

// Exists checks if a journal file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// RecordCompleted marks userID as switched and saves the journal
func (m *Manager) RecordCompleted(checkpoint *Checkpoint, userID, name string) error {
	if !checkpoint.IsCompleted(userID) {
		checkpoint.TotalCompleted++
	}
	checkpoint.Completed[userID] = name
	return m.Save(checkpoint)
}

// Info returns a summary of the stored journal, or nil when there is none
func (m *Manager) Info() (map[string]interface{}, error) {
	checkpoint, err := m.Load()
	if err != nil || checkpoint == nil {
		return nil, err
	}
	return map[string]interface{}{
		"user_id":         checkpoint.UserID,
		"direction":       checkpoint.Direction,
		"total_completed": checkpoint.TotalCompleted,
		"runs":            checkpoint.Runs,
		"last_failed":     checkpoint.LastFailed,
		"created_at":      checkpoint.CreatedAt,
		"updated_at":      checkpoint.UpdatedAt,
		"age":             time.Since(checkpoint.UpdatedAt),
	}, nil
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "pxfollow")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "pxfollow")
	default:
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "pxfollow")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "pxfollow")
		}
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}
