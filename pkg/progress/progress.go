// Package progress carries human-readable progress events from a run to
// whatever displays them. Producers never print; they report.
package progress

import (
	"strings"
	"sync"
)

// Phase identifies which part of a run produced an event
type Phase string

const (
	PhaseSession    Phase = "session"
	PhaseEnumerate  Phase = "enumerate"
	PhaseMutate     Phase = "mutate"
	PhaseSummary    Phase = "summary"
	PhaseAutomation Phase = "automation"
)

// Event is one progress message. Current and Total are zero when the event
// does not describe a position; Total is -1 when it is unknown.
type Event struct {
	Message string
	IsError bool
	Phase   Phase
	Current int
	Total   int
}

// Reporter receives progress events
type Reporter interface {
	Report(Event)
}

// Func adapts a plain function to a Reporter
type Func func(Event)

func (f Func) Report(e Event) { f(e) }

type discard struct{}

func (discard) Report(Event) {}

// Discard drops every event
var Discard Reporter = discard{}

// OrDiscard returns r, or Discard when r is nil
func OrDiscard(r Reporter) Reporter {
	if r == nil {
		return Discard
	}
	return r
}

// Multi fans each event out to all reporters in order
func Multi(reporters ...Reporter) Reporter {
	var out multi
	for _, r := range reporters {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

type multi []Reporter

func (m multi) Report(e Event) {
	for _, r := range m {
		r.Report(e)
	}
}

// Recorder keeps every event it receives. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Report(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Messages returns the recorded messages in order
func (r *Recorder) Messages() []string {
	events := r.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Message
	}
	return out
}

// ByPhase returns the recorded events of one phase
func (r *Recorder) ByPhase(p Phase) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Phase == p {
			out = append(out, e)
		}
	}
	return out
}

// Errors returns the recorded error events
func (r *Recorder) Errors() []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.IsError {
			out = append(out, e)
		}
	}
	return out
}

// Contains reports whether any recorded message contains text
func (r *Recorder) Contains(text string) bool {
	for _, m := range r.Messages() {
		if strings.Contains(m, text) {
			return true
		}
	}
	return false
}
