package follows

import (
	"context"
	"fmt"
	"time"

	errs "pxfollow/pkg/errors"
	"pxfollow/pkg/logger"
	"pxfollow/pkg/metrics"
	"pxfollow/pkg/pixiv"
	"pxfollow/pkg/progress"
	"pxfollow/pkg/ratelimit"
)

// DefaultPageSize is the largest page the following endpoint serves
const DefaultPageSize = 100

// Enumeration is the complete follow list as the server returned it
type Enumeration struct {
	Entities      []Entity
	DeclaredTotal int
	Pages         int
}

// Enumerator collects the whole follow list page by page
type Enumerator struct {
	lister   Lister
	pageSize int
	pacer    ratelimit.Limiter
	reporter progress.Reporter
	metrics  *metrics.Recorder
	logger   logger.Logger
}

// NewEnumerator creates an enumerator. pacer is waited on after every page.
func NewEnumerator(lister Lister, pageSize int, pacer ratelimit.Limiter, log logger.Logger) *Enumerator {
	if pageSize <= 0 || pageSize > DefaultPageSize {
		pageSize = DefaultPageSize
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Enumerator{
		lister:   lister,
		pageSize: pageSize,
		pacer:    pacer,
		reporter: progress.Discard,
		logger:   log,
	}
}

func (e *Enumerator) SetReporter(r progress.Reporter) { e.reporter = progress.OrDiscard(r) }
func (e *Enumerator) SetMetrics(m *metrics.Recorder)  { e.metrics = m }

// Enumerate fetches every account the subject follows with visibility v.
// Any failed page fails the whole enumeration with a list_fetch error.
func (e *Enumerator) Enumerate(ctx context.Context, session pixiv.Session, v pixiv.Visibility) (*Enumeration, error) {
	result := &Enumeration{}
	offset := 0
	declaredTotal := -1

	e.reporter.Report(progress.Event{
		Message: fmt.Sprintf("Fetching the list of %s follows...", v),
		Phase:   progress.PhaseEnumerate,
	})

	for {
		start := time.Now()
		page, err := e.lister.Following(ctx, session.UserID, offset, e.pageSize, v)
		if err != nil {
			e.reporter.Report(progress.Event{
				Message: fmt.Sprintf("Failed to fetch following list: %v", err),
				IsError: true,
				Phase:   progress.PhaseEnumerate,
			})
			return nil, errs.Wrap(errs.ErrorTypeListFetch, err,
				fmt.Sprintf("failed to fetch following list at offset %d", offset))
		}
		result.Pages++

		if declaredTotal < 0 {
			declaredTotal = page.Total
			result.DeclaredTotal = declaredTotal
			if declaredTotal <= 0 {
				result.DeclaredTotal = 0
				e.reporter.Report(progress.Event{
					Message: "No followed users to process.",
					Phase:   progress.PhaseEnumerate,
				})
				return result, nil
			}
			e.reporter.Report(progress.Event{
				Message: fmt.Sprintf("Found a total of %d users to process.", declaredTotal),
				Phase:   progress.PhaseEnumerate,
				Total:   declaredTotal,
			})
		}

		returned := len(page.Users)
		result.Entities = append(result.Entities, entitiesFromUsers(page.Users)...)
		logger.LogPage(e.logger, offset, returned, declaredTotal, time.Since(start))
		e.metrics.PageFetched(returned)

		if returned == 0 {
			e.logger.WarnWithFields("empty page before declared total, ending enumeration", map[string]interface{}{
				"offset":    offset,
				"collected": len(result.Entities),
				"total":     declaredTotal,
			})
		}
		offset = NextOffset(offset, returned, declaredTotal)

		e.reporter.Report(progress.Event{
			Message: fmt.Sprintf("Fetched %d / %d users...", len(result.Entities), declaredTotal),
			Phase:   progress.PhaseEnumerate,
			Current: len(result.Entities),
			Total:   declaredTotal,
		})

		if err := e.pacer.Wait(ctx); err != nil {
			return nil, errs.Wrap(errs.ErrorTypeListFetch, err, "enumeration interrupted")
		}

		if offset >= declaredTotal {
			break
		}
	}

	return result, nil
}
