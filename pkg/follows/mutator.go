package follows

import (
	"context"
	"errors"
	"fmt"

	errs "pxfollow/pkg/errors"
	"pxfollow/pkg/logger"
	"pxfollow/pkg/metrics"
	"pxfollow/pkg/pixiv"
	"pxfollow/pkg/progress"
	"pxfollow/pkg/ratelimit"
)

// OutcomeKind classifies the result of one visibility change
type OutcomeKind int

const (
	Success OutcomeKind = iota
	// ApiRejected means the server answered but refused the change
	ApiRejected
	// TransportError means the request could not complete
	TransportError
)

func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case ApiRejected:
		return "api_rejected"
	case TransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *OutcomeKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "success":
		*k = Success
	case "api_rejected":
		*k = ApiRejected
	case "transport_error":
		*k = TransportError
	default:
		return fmt.Errorf("unknown outcome %q", text)
	}
	return nil
}

// Outcome is the result for one entity
type Outcome struct {
	Entity Entity      `json:"entity"`
	Kind   OutcomeKind `json:"kind"`
	Reason string      `json:"reason,omitempty"`
}

// RunSummary aggregates a run. Attempted always equals the number of
// entities handed to the mutator. DeclaredTotal, Duplicates and Skipped
// describe the enumeration and are filled in by Pipeline.Run.
type RunSummary struct {
	Attempted     int       `json:"attempted"`
	Succeeded     int       `json:"succeeded"`
	DeclaredTotal int       `json:"declared_total"`
	Duplicates    int       `json:"duplicates"`
	Skipped       int       `json:"skipped"`
	Outcomes      []Outcome `json:"outcomes"`
}

// Failed is the number of attempted changes that did not succeed
func (s RunSummary) Failed() int {
	return s.Attempted - s.Succeeded
}

// Mutator applies one visibility to a list of entities, strictly in order
type Mutator struct {
	restrictor Restrictor
	pacer      ratelimit.Limiter
	reporter   progress.Reporter
	metrics    *metrics.Recorder
	logger     logger.Logger
	onOutcome  func(Outcome)
}

// NewMutator creates a mutator. pacer is waited on after every request.
func NewMutator(restrictor Restrictor, pacer ratelimit.Limiter, log logger.Logger) *Mutator {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Mutator{
		restrictor: restrictor,
		pacer:      pacer,
		reporter:   progress.Discard,
		logger:     log,
	}
}

func (m *Mutator) SetReporter(r progress.Reporter) { m.reporter = progress.OrDiscard(r) }
func (m *Mutator) SetMetrics(r *metrics.Recorder)  { m.metrics = r }

// OnOutcome registers a hook called after each entity
func (m *Mutator) OnOutcome(fn func(Outcome)) { m.onOutcome = fn }

// Apply sets every entity to visibility v. Failures are recorded and the
// run continues; nothing is retried. The summary's enumeration fields stay
// zero for the caller to stamp.
func (m *Mutator) Apply(ctx context.Context, session pixiv.Session, entities []Entity, v pixiv.Visibility) RunSummary {
	summary := RunSummary{Outcomes: make([]Outcome, 0, len(entities))}
	total := len(entities)

	for i, entity := range entities {
		err := m.restrictor.SetRestrict(ctx, session, entity.ID, v)
		outcome := classify(entity, err)

		summary.Attempted++
		if outcome.Kind == Success {
			summary.Succeeded++
		}
		summary.Outcomes = append(summary.Outcomes, outcome)

		logger.LogMutation(m.logger, entity.ID, outcome.Kind.String(), err)
		m.metrics.Mutation(outcome.Kind.String())

		m.reporter.Report(progress.Event{
			Message: fmt.Sprintf("[%d/%d] Processing user: %s", i+1, total, entity.DisplayName),
			Phase:   progress.PhaseMutate,
			Current: i + 1,
			Total:   total,
		})
		if outcome.Kind != Success {
			m.reporter.Report(progress.Event{
				Message: fmt.Sprintf("Failed to update user %s: %s", entity.DisplayName, outcome.Reason),
				IsError: true,
				Phase:   progress.PhaseMutate,
				Current: i + 1,
				Total:   total,
			})
		}

		if m.onOutcome != nil {
			m.onOutcome(outcome)
		}

		// a cancelled context ends the wait early; the remaining requests
		// then fail on their own and are recorded as transport errors
		if err := m.pacer.Wait(ctx); err != nil {
			m.logger.DebugWithFields("pacing wait interrupted", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	m.reporter.Report(progress.Event{
		Message: fmt.Sprintf("Successfully updated %d out of %d users to %s.", summary.Succeeded, summary.Attempted, v),
		Phase:   progress.PhaseSummary,
		Current: summary.Succeeded,
		Total:   summary.Attempted,
	})

	return summary
}

// classify maps a SetRestrict error to an outcome
func classify(entity Entity, err error) Outcome {
	if err == nil {
		return Outcome{Entity: entity, Kind: Success}
	}

	if errs.HasType(err, errs.ErrorTypeNetwork) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Outcome{Entity: entity, Kind: TransportError, Reason: err.Error()}
	}

	reason := err.Error()
	var typed *errs.Error
	if errors.As(err, &typed) && typed.Type == errs.ErrorTypeAPI {
		reason = typed.Message
	}
	return Outcome{Entity: entity, Kind: ApiRejected, Reason: reason}
}
