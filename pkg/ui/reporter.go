package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"pxfollow/pkg/follows"
	"pxfollow/pkg/progress"
)

const barWidth = 20

// TerminalReporter prints progress events. In live mode positional events
// redraw a single status line; otherwise every event gets its own uncolored
// line.
type TerminalReporter struct {
	mu        sync.Mutex
	w         io.Writer
	live      bool
	onLine    bool
	startTime time.Time
	errors    int
	now       func() time.Time
}

// NewTerminalReporter creates a reporter writing to w
func NewTerminalReporter(w io.Writer, live bool) *TerminalReporter {
	return &TerminalReporter{
		w:         w,
		live:      live,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// Report implements progress.Reporter
func (r *TerminalReporter) Report(e progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.IsError {
		r.errors++
		r.breakLine()
		fmt.Fprintf(r.w, "%s %s\n", r.paint(Red, "✗"), r.paint(Red, e.Message))
		return
	}
	if IsQuiet() {
		return
	}

	if r.live && e.Current > 0 {
		line := r.statusLine(e)
		fmt.Fprintf(r.w, "\r%s\r%s", strings.Repeat(" ", 120), line)
		r.onLine = true
		return
	}

	r.breakLine()
	fmt.Fprintf(r.w, "%s %s\n", r.paint(Dim, fmt.Sprintf("[%s]", e.Phase)), e.Message)
}

// Errors returns the number of error events seen
func (r *TerminalReporter) Errors() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errors
}

// Complete prints the closing summary of an API run
func (r *TerminalReporter) Complete(summary *follows.RunSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breakLine()

	if summary == nil {
		return
	}
	elapsed := r.now().Sub(r.startTime)

	fmt.Fprintf(r.w, "\n%s Switched %d of %d follows\n", r.paint(Green, "✓"), summary.Succeeded, summary.Attempted)
	fmt.Fprintf(r.w, "  %s finished in %s\n", r.paint(Dim, "•"), formatDuration(elapsed))
	if summary.Skipped > 0 {
		fmt.Fprintf(r.w, "  %s %d already switched by an earlier run\n", r.paint(Dim, "•"), summary.Skipped)
	}
	if summary.Duplicates > 0 {
		fmt.Fprintf(r.w, "  %s %d duplicates dropped\n", r.paint(Dim, "•"), summary.Duplicates)
	}
	if failed := summary.Failed(); failed > 0 {
		fmt.Fprintf(r.w, "  %s %s\n", r.paint(Dim, "•"), r.paint(Red, fmt.Sprintf("%d changes failed", failed)))
		for _, o := range summary.Outcomes {
			if o.Kind == follows.Success {
				continue
			}
			fmt.Fprintf(r.w, "    %s %s (%s): %s\n", r.paint(Red, "✗"), o.Entity.DisplayName, o.Entity.ID, o.Reason)
		}
	}
}

// paint colors s only in live mode, so piped output stays plain text
func (r *TerminalReporter) paint(color func(string) string, s string) string {
	if !r.live {
		return s
	}
	return color(s)
}

func (r *TerminalReporter) breakLine() {
	if r.onLine {
		fmt.Fprintln(r.w)
		r.onLine = false
	}
}

func (r *TerminalReporter) statusLine(e progress.Event) string {
	line := fmt.Sprintf("%s %d", r.paint(Cyan, string(e.Phase)), e.Current)
	if e.Total > 0 {
		line = fmt.Sprintf("%s [%s] %d/%d", r.paint(Cyan, string(e.Phase)), bar(e.Current, e.Total), e.Current, e.Total)
		if eta := r.eta(e.Current, e.Total); eta != "" {
			line += " • " + eta
		}
	}
	if r.errors > 0 {
		line += " • " + r.paint(Red, fmt.Sprintf("%d errors", r.errors))
	}
	return line + " • " + e.Message
}

func (r *TerminalReporter) eta(current, total int) string {
	elapsed := r.now().Sub(r.startTime)
	if current == 0 || elapsed <= 0 {
		return ""
	}
	perItem := elapsed / time.Duration(current)
	return formatDuration(perItem*time.Duration(total-current)) + " left"
}

func bar(current, total int) string {
	if total <= 0 {
		return strings.Repeat("─", barWidth)
	}
	filled := current * barWidth / total
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
