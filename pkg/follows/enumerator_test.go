package follows

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "pxfollow/pkg/errors"
	"pxfollow/pkg/logger"
	"pxfollow/pkg/metrics"
	"pxfollow/pkg/pixiv"
	"pxfollow/pkg/progress"
	"pxfollow/pkg/ratelimit"
)

var session = pixiv.Session{Token: "tok", UserID: "42"}

const pageDelay = 300 * time.Millisecond

func newTestEnumerator(lister Lister) (*Enumerator, *ratelimit.FakeClock, *progress.Recorder) {
	clock := ratelimit.NewFakeClock(time.Unix(0, 0))
	rec := &progress.Recorder{}
	e := NewEnumerator(lister, DefaultPageSize, ratelimit.NewPacer(clock, pageDelay), logger.NewNopLogger())
	e.SetReporter(rec)
	return e, clock, rec
}

func TestEnumerateReturnsAllItemsForAnyPartition(t *testing.T) {
	partitions := [][]int{
		{1},
		{7},
		{3, 4},
		{1, 1, 1, 1, 1, 1, 1},
		{100, 100, 50},
		{99, 1, 100, 37},
	}

	for _, sizes := range partitions {
		t.Run(fmt.Sprint(sizes), func(t *testing.T) {
			total := 0
			for _, n := range sizes {
				total += n
			}

			lister := &scriptedLister{}
			next := 0
			var want []string
			for _, n := range sizes {
				page := numberedUsers(next, n)
				for _, u := range page {
					want = append(want, u.UserID.String())
				}
				lister.pages = append(lister.pages, scriptedPage{users: page, total: total})
				next += n
			}

			e, clock, _ := newTestEnumerator(lister)
			result, err := e.Enumerate(context.Background(), session, pixiv.Public)
			require.NoError(t, err)

			var got []string
			for _, entity := range result.Entities {
				got = append(got, entity.ID)
			}
			assert.Equal(t, want, got)
			assert.Equal(t, total, result.DeclaredTotal)
			assert.Equal(t, len(sizes), result.Pages)
			assert.Len(t, lister.calls, len(sizes))
			// one delay per page, including the last
			assert.Equal(t, len(sizes), clock.SleepCount())
		})
	}
}

func TestEnumerateAdvancesOffsetByReturnedCount(t *testing.T) {
	lister := &scriptedLister{pages: []scriptedPage{
		{users: numberedUsers(0, 100), total: 130},
		{users: numberedUsers(100, 30), total: 130},
	}}

	e, _, _ := newTestEnumerator(lister)
	_, err := e.Enumerate(context.Background(), session, pixiv.Private)
	require.NoError(t, err)

	require.Len(t, lister.calls, 2)
	assert.Equal(t, listCall{offset: 0, limit: 100, visibility: pixiv.Private}, lister.calls[0])
	assert.Equal(t, listCall{offset: 100, limit: 100, visibility: pixiv.Private}, lister.calls[1])
}

func TestEnumerateZeroTotalStopsAfterOneRequest(t *testing.T) {
	lister := &scriptedLister{pages: []scriptedPage{{users: nil, total: 0}}}

	e, clock, rec := newTestEnumerator(lister)
	result, err := e.Enumerate(context.Background(), session, pixiv.Public)
	require.NoError(t, err)

	assert.Empty(t, result.Entities)
	assert.Zero(t, result.DeclaredTotal)
	assert.Len(t, lister.calls, 1)
	assert.Zero(t, clock.SleepCount())
	assert.True(t, rec.Contains("No followed users to process."))
}

func TestEnumerateEmptyPageEndsLoop(t *testing.T) {
	lister := &scriptedLister{pages: []scriptedPage{
		{users: users("a", "b", "c"), total: 5},
		{users: nil, total: 5},
		{users: users("d", "e"), total: 5},
	}}

	e, clock, _ := newTestEnumerator(lister)
	result, err := e.Enumerate(context.Background(), session, pixiv.Public)
	require.NoError(t, err)

	assert.Len(t, result.Entities, 3)
	assert.Len(t, lister.calls, 2, "no third page may be requested")
	assert.Equal(t, 2, clock.SleepCount())
}

func TestEnumeratePageFailureIsListFetchError(t *testing.T) {
	cause := &errs.Error{Type: errs.ErrorTypeServerError, Message: "bad gateway", Code: 502}
	lister := &scriptedLister{pages: []scriptedPage{
		{users: numberedUsers(0, 100), total: 150},
		{err: cause},
	}}

	e, _, rec := newTestEnumerator(lister)
	result, err := e.Enumerate(context.Background(), session, pixiv.Public)

	assert.Nil(t, result)
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeListFetch, errs.TypeOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "offset 100")
	assert.Len(t, rec.Errors(), 1)
}

func TestEnumerateFirstPageFailure(t *testing.T) {
	lister := &scriptedLister{pages: []scriptedPage{{err: errors.New("dial tcp: refused")}}}

	e, clock, _ := newTestEnumerator(lister)
	_, err := e.Enumerate(context.Background(), session, pixiv.Public)

	assert.True(t, errs.HasType(err, errs.ErrorTypeListFetch))
	assert.Zero(t, clock.SleepCount())
}

func TestEnumerateReportsProgress(t *testing.T) {
	lister := &scriptedLister{pages: []scriptedPage{
		{users: numberedUsers(0, 100), total: 150},
		{users: numberedUsers(100, 50), total: 150},
	}}

	e, _, rec := newTestEnumerator(lister)
	m := metrics.New()
	e.SetMetrics(m)
	_, err := e.Enumerate(context.Background(), session, pixiv.Public)
	require.NoError(t, err)

	pages := rec.ByPhase(progress.PhaseEnumerate)
	assert.Equal(t, []string{
		"Fetching the list of public follows...",
		"Found a total of 150 users to process.",
		"Fetched 100 / 150 users...",
		"Fetched 150 / 150 users...",
	}, messages(pages))
	assert.Equal(t, 150, pages[3].Current)
	assert.Equal(t, 150, pages[3].Total)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PagesFetched))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.EntitiesEnumerated))
}

func TestEnumerateCancelledDuringPacing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lister := &scriptedLister{pages: []scriptedPage{{users: numberedUsers(0, 100), total: 200}}}
	e, _, _ := newTestEnumerator(Lister(listerFunc(func(ctx context.Context, offset int) (*pixiv.FollowingBody, error) {
		body, err := lister.Following(ctx, "42", offset, 100, pixiv.Public)
		cancel()
		return body, err
	})))

	_, err := e.Enumerate(ctx, session, pixiv.Public)
	assert.True(t, errs.HasType(err, errs.ErrorTypeListFetch))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, lister.calls, 1)
}

func TestNewEnumeratorClampsPageSize(t *testing.T) {
	assert.Equal(t, 100, NewEnumerator(nil, 0, nil, nil).pageSize)
	assert.Equal(t, 100, NewEnumerator(nil, 500, nil, nil).pageSize)
	assert.Equal(t, 25, NewEnumerator(nil, 25, nil, nil).pageSize)
}

type listerFunc func(ctx context.Context, offset int) (*pixiv.FollowingBody, error)

func (f listerFunc) Following(ctx context.Context, userID string, offset, limit int, v pixiv.Visibility) (*pixiv.FollowingBody, error) {
	return f(ctx, offset)
}

func messages(events []progress.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Message
	}
	return out
}
