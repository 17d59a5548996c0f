package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"pxfollow/pkg/progress"
)

// TUI runs the full screen display of a run. It implements progress.Reporter.
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a TUI. cancel stops the run when the user quits early.
func NewTUI(title string, cancel context.CancelFunc, opts ...tea.ProgramOption) *TUI {
	model := NewModel(title, cancel)
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return &TUI{
		program: tea.NewProgram(&model, opts...),
		model:   &model,
	}
}

// Start blocks until the user quits
func (t *TUI) Start() error {
	_, err := t.program.Run()
	return err
}

// Stop stops the TUI
func (t *TUI) Stop() {
	t.program.Quit()
}

// Report implements progress.Reporter
func (t *TUI) Report(e progress.Event) {
	t.program.Send(EventMsg{Event: e})
}

// Finish shows the final result and leaves the screen up until the user quits
func (t *TUI) Finish(result string, err error) {
	t.program.Send(DoneMsg{Result: result, Err: err})
}
