package follows

import (
	"context"
	"fmt"
	"time"

	"pxfollow/pkg/logger"
	"pxfollow/pkg/metrics"
	"pxfollow/pkg/pixiv"
	"pxfollow/pkg/progress"
	"pxfollow/pkg/ratelimit"
)

// PipelineConfig holds the pacing and behavior of an API run
type PipelineConfig struct {
	PageSize      int
	PageDelay     time.Duration
	MutationDelay time.Duration
	// Dedupe drops repeated IDs before any change is sent
	Dedupe bool
	// Resume skips accounts the journal already records as switched
	Resume bool
	// Clock paces requests; nil means the wall clock
	Clock ratelimit.Clock
}

// Pipeline enumerates the follows still in the other visibility and switches them
type Pipeline struct {
	client      Client
	cfg         PipelineConfig
	reporter    progress.Reporter
	metrics     *metrics.Recorder
	openJournal JournalOpener
	logger      logger.Logger
}

// NewPipeline creates a pipeline
func NewPipeline(client Client, cfg PipelineConfig, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg.Clock == nil {
		cfg.Clock = ratelimit.RealClock{}
	}
	return &Pipeline{
		client:   client,
		cfg:      cfg,
		reporter: progress.Discard,
		logger:   log,
	}
}

func (p *Pipeline) SetReporter(r progress.Reporter) { p.reporter = progress.OrDiscard(r) }
func (p *Pipeline) SetMetrics(m *metrics.Recorder)  { p.metrics = m }

// SetJournal enables the run journal
func (p *Pipeline) SetJournal(open JournalOpener) { p.openJournal = open }

// Run switches every follow of the session's user to target. It fails
// before any change when the session is invalid or the list cannot be
// fetched completely; individual change failures only show in the summary.
func (p *Pipeline) Run(ctx context.Context, session pixiv.Session, target pixiv.Visibility) (*RunSummary, error) {
	start := time.Now()
	log := p.logger.WithFields(map[string]interface{}{
		"user_id": session.UserID,
		"target":  target.String(),
	})

	if err := session.Validate(); err != nil {
		p.reporter.Report(progress.Event{Message: err.Error(), IsError: true, Phase: progress.PhaseSession})
		return nil, err
	}

	pagePacer := ratelimit.NewPacer(p.cfg.Clock, p.cfg.PageDelay)
	enumerator := NewEnumerator(p.client, p.cfg.PageSize, pagePacer, log)
	enumerator.SetReporter(p.reporter)
	enumerator.SetMetrics(p.metrics)

	// only follows still in the other visibility need a change
	enumeration, err := enumerator.Enumerate(ctx, session, target.Opposite())
	if err != nil {
		log.WithError(err).Error("Enumeration failed, nothing was changed")
		return nil, err
	}

	entities := enumeration.Entities
	summary := RunSummary{DeclaredTotal: enumeration.DeclaredTotal}

	if p.cfg.Dedupe {
		var dropped int
		entities, dropped = Dedupe(entities)
		summary.Duplicates = dropped
		p.metrics.Deduplicated(dropped)
		if dropped > 0 {
			p.reporter.Report(progress.Event{
				Message: fmt.Sprintf("Dropped %d duplicate users returned by pagination.", dropped),
				Phase:   progress.PhaseEnumerate,
			})
		}
	}

	journal := p.startJournal(session.UserID, target, log)
	if journal != nil && p.cfg.Resume {
		remaining := entities[:0:0]
		for _, e := range entities {
			if journal.IsCompleted(e.ID) {
				summary.Skipped++
				continue
			}
			remaining = append(remaining, e)
		}
		entities = remaining
		if summary.Skipped > 0 {
			p.reporter.Report(progress.Event{
				Message: fmt.Sprintf("Resuming: skipping %d users already switched.", summary.Skipped),
				Phase:   progress.PhaseMutate,
			})
		}
	}

	mutationPacer := ratelimit.NewPacer(p.cfg.Clock, p.cfg.MutationDelay)
	mutator := NewMutator(p.client, mutationPacer, log)
	mutator.SetReporter(p.reporter)
	mutator.SetMetrics(p.metrics)
	if journal != nil {
		mutator.OnOutcome(func(o Outcome) {
			if o.Kind != Success {
				return
			}
			if err := journal.RecordCompleted(o.Entity.ID, o.Entity.DisplayName); err != nil {
				log.WithError(err).Warn("Failed to record progress in journal")
			}
		})
	}

	applied := mutator.Apply(ctx, session, entities, target)
	summary.Attempted = applied.Attempted
	summary.Succeeded = applied.Succeeded
	summary.Outcomes = applied.Outcomes

	if journal != nil {
		if err := journal.Finish(summary.Failed()); err != nil {
			log.WithError(err).Warn("Failed to close journal")
		}
	}

	pageWaits, pageSlept := pagePacer.Stats()
	mutationWaits, mutationSlept := mutationPacer.Stats()
	log.DebugWithFields("Pacing totals", map[string]interface{}{
		"page_waits":     pageWaits,
		"page_slept":     pageSlept.String(),
		"mutation_waits": mutationWaits,
		"mutation_slept": mutationSlept.String(),
	})

	duration := time.Since(start).Round(time.Millisecond)
	p.metrics.ObserveRun(duration)
	logger.LogRunSummary(log, summary.Attempted, summary.Succeeded, summary.DeclaredTotal, duration)

	return &summary, nil
}

func (p *Pipeline) startJournal(subjectID string, target pixiv.Visibility, log logger.Logger) Journal {
	if p.openJournal == nil {
		return nil
	}
	journal, err := p.openJournal(subjectID, target, p.cfg.Resume)
	if err != nil {
		log.WithError(err).Warn("Run journal unavailable, continuing without it")
		return nil
	}
	return journal
}
