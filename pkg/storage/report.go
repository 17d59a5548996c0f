package storage

import (
	"time"

	"pxfollow/pkg/automation"
	"pxfollow/pkg/follows"
)

// Strategy names how a run changed visibilities
type Strategy string

const (
	StrategyAPI Strategy = "api"
	StrategyUI  Strategy = "ui"
)

// Report is what a run leaves behind
type Report struct {
	Strategy   Strategy            `json:"strategy"`
	UserID     string              `json:"user_id,omitempty"`
	Direction  string              `json:"direction"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	Duration   string              `json:"duration"`
	Summary    *follows.RunSummary `json:"summary,omitempty"`
	Automation *AutomationReport   `json:"automation,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// AutomationReport is the result of a UI run
type AutomationReport struct {
	Edited    int    `json:"edited"`
	Total     int    `json:"total"`
	Exhausted bool   `json:"exhausted"`
	Reason    string `json:"reason,omitempty"`
	Polls     int    `json:"polls"`
}

// NewAutomationReport converts an automation result
func NewAutomationReport(r *automation.Result) *AutomationReport {
	if r == nil {
		return nil
	}
	return &AutomationReport{
		Edited:    r.Edited,
		Total:     r.Total,
		Exhausted: r.Exhausted,
		Reason:    r.Reason,
		Polls:     r.Polls,
	}
}

// Finish stamps the end time and the run error, if any
func (r *Report) Finish(at time.Time, err error) {
	r.FinishedAt = at
	r.Duration = at.Sub(r.StartedAt).Round(time.Millisecond).String()
	if err != nil {
		r.Error = err.Error()
	}
}
