package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const logo = `
╔═══════════════════════════════════════╗
║  p x f o l l o w                      ║
║  bulk follow visibility switcher      ║
╚═══════════════════════════════════════╝`

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	width := m.width - 4
	sections := []string{
		logoStyle.Width(m.width).Render(logo),
		m.renderStatsPanel(width),
		m.renderLogsPanel(width),
	}

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else if m.done {
		sections = append(sections, helpStyle.Render("Run finished. Press q to exit"))
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) renderStatsPanel(width int) string {
	title := titleStyle.Render(" " + strings.ToUpper(m.title) + " ")

	status := m.spinner.View() + " running"
	switch {
	case m.done && m.err != nil:
		status = errorStyle.Render("✗ failed")
	case m.done:
		status = successStyle.Render("✓ finished")
	}

	position := "-"
	if m.current > 0 {
		position = fmt.Sprintf("%d", m.current)
		if m.total > 0 {
			position = fmt.Sprintf("%d/%d", m.current, m.total)
		}
	}

	stats := []string{
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Status:"), status),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Phase:"), phaseStyle(m.Percent()*100).Render(string(m.phase))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Progress:"), statsValueStyle.Render(position)),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Elapsed:"), statsValueStyle.Render(formatDuration(m.Elapsed()))),
	}
	if m.errors > 0 {
		stats = append(stats, fmt.Sprintf("%s %s", statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d", m.errors))))
	}

	bar := m.bar
	bar.Width = width - 8
	if bar.Width < 10 {
		bar.Width = 10
	}
	if m.total > 0 {
		stats = append(stats, "", bar.ViewAs(m.Percent()))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, stats...)),
	)
}

func (m *Model) renderLogsPanel(width int) string {
	title := titleStyle.Render(" LOG ")

	start := len(m.logMessages) - 10
	if start < 0 {
		start = 0
	}

	maxMsgLen := width - 25
	var logs []string
	for _, log := range m.logMessages[start:] {
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))

		text := log.Message
		if maxMsgLen > 3 && len(text) > maxMsgLen {
			text = text[:maxMsgLen-3] + "..."
		}
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, logMessageStyle.Render(text)))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("No events yet...")
	}

	logsHeight := m.height - 24
	if logsHeight < 5 {
		logsHeight = 5
	}

	return panelStyle.Width(width).Height(logsHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

func (m *Model) renderHelp() string {
	help := `
  Keys:
    q/Q      - Stop the run and quit
    ctrl+l   - Clear the log
    ?        - Toggle this help

  Status:
    ` + successStyle.Render("Green") + `    - Finished
    ` + warningStyle.Render("Orange") + `   - Warning
    ` + errorStyle.Render("Red") + `      - Error
`

	return panelStyle.Width(m.width).Render(help)
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
