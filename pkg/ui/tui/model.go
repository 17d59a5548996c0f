package tui

import (
	"context"
	"time"

	pbar "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pxfollow/pkg/progress"
)

// Model is the bubbletea model of one run
type Model struct {
	spinner spinner.Model
	bar     pbar.Model

	title string

	// Position of the most recent positional event
	phase   progress.Phase
	current int
	total   int
	errors  int

	startTime time.Time
	endTime   time.Time
	done      bool
	result    string
	err       error

	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int

	cancel context.CancelFunc
	now    func() time.Time
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a model. cancel is called when the user quits before
// the run has finished; it may be nil.
func NewModel(title string, cancel context.CancelFunc) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	bar := pbar.New(pbar.WithDefaultGradient())
	bar.Width = 40

	return Model{
		spinner:        s,
		bar:            bar,
		title:          title,
		startTime:      time.Now(),
		maxLogMessages: 50,
		cancel:         cancel,
		now:            time.Now,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// ApplyEvent folds one progress event into the model
func (m *Model) ApplyEvent(e progress.Event) {
	if e.Phase != "" {
		m.phase = e.Phase
	}
	if e.Current > 0 {
		m.current = e.Current
		m.total = e.Total
	}

	level := "INFO"
	switch {
	case e.IsError:
		level = "ERROR"
		m.errors++
	case e.Phase == progress.PhaseSummary:
		level = "SUCCESS"
	}
	m.AddLogMessage(level, e.Message)
}

// Finish marks the run as over
func (m *Model) Finish(result string, err error) {
	m.done = true
	m.endTime = m.now()
	m.result = result
	m.err = err
	if err != nil {
		m.AddLogMessage("ERROR", err.Error())
	} else if result != "" {
		m.AddLogMessage("SUCCESS", result)
	}
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	color := dimWhite
	switch level {
	case "ERROR":
		color = neonRed
	case "WARN":
		color = neonOrange
	case "SUCCESS":
		color = neonGreen
	case "INFO":
		color = neonCyan
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    m.now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// Percent is the completed share of the current phase, 0 when the total is unknown
func (m *Model) Percent() float64 {
	if m.total <= 0 {
		return 0
	}
	p := float64(m.current) / float64(m.total)
	if p > 1 {
		p = 1
	}
	return p
}

// Elapsed is the run time so far, frozen once the run is done
func (m *Model) Elapsed() time.Duration {
	if m.done {
		return m.endTime.Sub(m.startTime)
	}
	return m.now().Sub(m.startTime)
}

// Done reports whether Finish was called
func (m *Model) Done() bool { return m.done }

// Errors is the number of error events seen
func (m *Model) Errors() int { return m.errors }
