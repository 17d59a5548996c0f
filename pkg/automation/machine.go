package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "pxfollow/pkg/errors"
	"pxfollow/pkg/logger"
	"pxfollow/pkg/metrics"
	"pxfollow/pkg/progress"
	"pxfollow/pkg/ratelimit"
)

// State is a state of the automation machine
type State int

const (
	AwaitingListRefresh State = iota
	AwaitingActionableControl
	Clicking
	Done
	StalledFatal
)

func (s State) String() string {
	switch s {
	case AwaitingListRefresh:
		return "awaiting_list_refresh"
	case AwaitingActionableControl:
		return "awaiting_actionable_control"
	case Clicking:
		return "clicking"
	case Done:
		return "done"
	case StalledFatal:
		return "stalled"
	default:
		return "unknown"
	}
}

// UnknownTotal asks the machine to read the follow count from the page
const UnknownTotal = -1

// Options controls polling
type Options struct {
	PollInterval time.Duration
	// MaxPolls is how many observations without progress end a phase
	MaxPolls int
	// Total is the number of follows to switch, or UnknownTotal
	Total int
}

// DefaultOptions polls every 100ms and gives up after 100 polls
func DefaultOptions() Options {
	return Options{
		PollInterval: 100 * time.Millisecond,
		MaxPolls:     100,
		Total:        UnknownTotal,
	}
}

// StallError ends a run that stopped making progress
type StallError struct {
	State  State
	Reason string
	Edited int
}

func (e *StallError) Error() string {
	return fmt.Sprintf("automation stalled in %s after %d changes: %s", e.State, e.Edited, e.Reason)
}

// Unwrap exposes the stall as a typed error
func (e *StallError) Unwrap() error {
	return errs.New(errs.ErrorTypeStall, e.Reason)
}

// Result describes a finished run
type Result struct {
	Edited int
	// Total is UnknownTotal when the follow count could not be read
	Total int
	// Exhausted is set when the total was unknown and the list stopped
	// changing. Reason says what was last observed.
	Exhausted bool
	Reason    string
	Polls     int
}

// Machine switches follows one at a time by clicking the visibility toggle
// of whichever account leads the list. It is not safe for concurrent use.
type Machine struct {
	page     Page
	clock    ratelimit.Clock
	opts     Options
	reporter progress.Reporter
	metrics  *metrics.Recorder
	logger   logger.Logger

	state       State
	total       int
	edited      int
	misses      int
	polls       int
	lastLeading string
	seenLeading bool
}

// NewMachine creates a machine. A nil clock means the wall clock.
func NewMachine(page Page, clock ratelimit.Clock, opts Options, log logger.Logger) *Machine {
	defaults := DefaultOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaults.PollInterval
	}
	if opts.MaxPolls <= 0 {
		opts.MaxPolls = defaults.MaxPolls
	}
	if opts.Total < 0 {
		opts.Total = UnknownTotal
	}
	if clock == nil {
		clock = ratelimit.RealClock{}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Machine{
		page:     page,
		clock:    clock,
		opts:     opts,
		reporter: progress.Discard,
		logger:   log,
		total:    opts.Total,
	}
}

func (m *Machine) SetReporter(r progress.Reporter) { m.reporter = progress.OrDiscard(r) }
func (m *Machine) SetMetrics(r *metrics.Recorder)  { m.metrics = r }

// State returns the current state
func (m *Machine) State() State { return m.state }

// Edited returns how many follows were switched so far
func (m *Machine) Edited() int { return m.edited }

// Run drives the page until every follow is switched or progress stops.
// It returns a *StallError when a phase runs out of polls, except for the
// natural end of a run whose total was unknown.
func (m *Machine) Run(ctx context.Context) (*Result, error) {
	m.discoverTotal(ctx)
	m.enter(AwaitingListRefresh)

	for {
		if m.total != UnknownTotal && m.edited >= m.total {
			m.enter(Done)
			m.report("Script finished.", false)
			return m.result(), nil
		}

		err := m.step(ctx)
		if err == nil {
			continue
		}

		var stall *StallError
		if !errors.As(err, &stall) {
			return m.result(), err
		}
		if stall.State == AwaitingListRefresh && m.total == UnknownTotal {
			m.enter(Done)
			m.report(fmt.Sprintf("Changed %d follows, no more follows to process.", m.edited), false)
			res := m.result()
			res.Exhausted = true
			res.Reason = stall.Reason
			return res, nil
		}

		m.enter(StalledFatal)
		m.metrics.Stall(stall.State.String())
		logger.LogStall(m.logger, stall.State.String(), stall.Reason, m.edited)
		m.report(stall.Reason, true)
		return m.result(), err
	}
}

// step makes one observation or action in the current state
func (m *Machine) step(ctx context.Context) error {
	switch m.state {
	case AwaitingListRefresh:
		return m.awaitListRefresh(ctx)
	case AwaitingActionableControl:
		return m.awaitControl(ctx)
	case Clicking:
		return m.click(ctx)
	default:
		return fmt.Errorf("automation step in terminal state %s", m.state)
	}
}

func (m *Machine) discoverTotal(ctx context.Context) {
	if m.total != UnknownTotal {
		return
	}
	counter, ok := m.page.(Counter)
	if !ok {
		return
	}
	if n, found := counter.FollowCount(ctx); found && n >= 0 {
		m.total = n
		m.report(fmt.Sprintf("Found %d follows.", n), false)
		return
	}
	m.logger.Warn("Could not read the follow count, running until the list stops changing")
	m.report("Could not find follow count.", false)
}

// awaitListRefresh polls until a leading entity appears that differs from the
// one just switched
func (m *Machine) awaitListRefresh(ctx context.Context) error {
	m.polls++
	name, ok := m.page.LeadingEntityName(ctx)
	if ok && (!m.seenLeading || name != m.lastLeading) {
		m.lastLeading = name
		m.seenLeading = true
		m.logger.DebugWithFields("Leading entity changed", map[string]interface{}{
			"name":  name,
			"polls": m.misses + 1,
		})
		m.enter(AwaitingActionableControl)
		return nil
	}
	return m.miss(ctx, func() string {
		if m.edited == 0 {
			return "could not find the first followed user, the page structure may have changed"
		}
		return "no new entity detected, no follows left to change or the list stopped refreshing"
	})
}

func (m *Machine) awaitControl(ctx context.Context) error {
	m.polls++
	switch m.page.ToggleState(ctx) {
	case Enabled:
		// misses carry over so a toggle that never accepts a click still stalls
		m.state = Clicking
		return nil
	case Disabled:
		if m.page.OpenMenu(ctx) {
			m.logger.Debug("Opened follow menu")
		}
	}
	return m.miss(ctx, m.controlStallReason(ctx))
}

func (m *Machine) controlStallReason(ctx context.Context) func() string {
	return func() string {
		if !m.page.MenuPresent(ctx) {
			return "could not find the follow menu button, the page structure may have changed"
		}
		return "could not find the visibility toggle in the follow menu"
	}
}

// click activates the toggle. A failed click counts as a poll without
// progress in AwaitingActionableControl.
func (m *Machine) click(ctx context.Context) error {
	if err := m.page.ClickToggle(ctx); err != nil {
		m.logger.WithError(err).Debug("Toggle click failed")
		m.state = AwaitingActionableControl
		return m.miss(ctx, m.controlStallReason(ctx))
	}

	m.edited++
	m.metrics.Click()
	m.logger.DebugWithFields("Visibility toggled", map[string]interface{}{
		"name":   m.lastLeading,
		"edited": m.edited,
	})
	if m.total != UnknownTotal {
		m.report(fmt.Sprintf("Changed %d/%d follows, %d remaining.", m.edited, m.total, m.total-m.edited), false)
	} else {
		m.report(fmt.Sprintf("Changed %d follows.", m.edited), false)
	}
	m.enter(AwaitingListRefresh)
	return nil
}

// miss records an observation without progress. After MaxPolls of them the
// phase stalls; otherwise it sleeps one poll interval.
func (m *Machine) miss(ctx context.Context, reason func() string) error {
	m.misses++
	if m.misses >= m.opts.MaxPolls {
		return &StallError{State: m.state, Reason: reason(), Edited: m.edited}
	}
	if err := m.clock.Sleep(ctx, m.opts.PollInterval); err != nil {
		return errs.Wrap(errs.ErrorTypeStall, err, "automation interrupted")
	}
	return nil
}

// enter moves to s and resets the phase's miss counter
func (m *Machine) enter(s State) {
	if m.state != s {
		m.logger.DebugWithFields("Automation state change", map[string]interface{}{
			"from": m.state.String(),
			"to":   s.String(),
		})
	}
	m.state = s
	m.misses = 0
}

func (m *Machine) report(msg string, isError bool) {
	total := m.total
	if total == UnknownTotal {
		total = 0
	}
	m.reporter.Report(progress.Event{
		Message: msg,
		IsError: isError,
		Phase:   progress.PhaseAutomation,
		Current: m.edited,
		Total:   total,
	})
}

func (m *Machine) result() *Result {
	return &Result{
		Edited: m.edited,
		Total:  m.total,
		Polls:  m.polls,
	}
}
