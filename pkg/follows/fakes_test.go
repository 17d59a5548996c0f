package follows

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pxfollow/pkg/pixiv"
)

type listCall struct {
	offset, limit int
	visibility    pixiv.Visibility
}

type scriptedPage struct {
	users []pixiv.FollowedUser
	total int
	err   error
}

// scriptedLister answers list requests with pages in order, regardless of offset
type scriptedLister struct {
	pages []scriptedPage
	calls []listCall
}

func (s *scriptedLister) Following(ctx context.Context, userID string, offset, limit int, v pixiv.Visibility) (*pixiv.FollowingBody, error) {
	s.calls = append(s.calls, listCall{offset: offset, limit: limit, visibility: v})
	i := len(s.calls) - 1
	if i >= len(s.pages) {
		return nil, errors.New("unexpected page request")
	}
	page := s.pages[i]
	if page.err != nil {
		return nil, page.err
	}
	return &pixiv.FollowingBody{Users: page.users, Total: page.total}, nil
}

func users(ids ...string) []pixiv.FollowedUser {
	out := make([]pixiv.FollowedUser, len(ids))
	for i, id := range ids {
		out[i] = pixiv.FollowedUser{UserID: pixiv.ID(id), UserName: "name-" + id}
	}
	return out
}

func numberedUsers(from, n int) []pixiv.FollowedUser {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%d", from+i)
	}
	return users(ids...)
}

type restrictCall struct {
	userID     string
	visibility pixiv.Visibility
}

// recordingRestrictor records every call and fails the IDs in failures
type recordingRestrictor struct {
	mu       sync.Mutex
	failures map[string]error
	calls    []restrictCall
}

func (r *recordingRestrictor) SetRestrict(ctx context.Context, session pixiv.Session, targetUserID string, v pixiv.Visibility) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, restrictCall{userID: targetUserID, visibility: v})
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.failures[targetUserID]
}

func (r *recordingRestrictor) calledIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.userID
	}
	return out
}

// fakeClient combines a scripted lister and a recording restrictor
type fakeClient struct {
	*scriptedLister
	*recordingRestrictor
}

// memoryJournal is an in-memory Journal
type memoryJournal struct {
	completed map[string]string
	finished  bool
	failed    int
}

func newMemoryJournal(ids ...string) *memoryJournal {
	j := &memoryJournal{completed: make(map[string]string)}
	for _, id := range ids {
		j.completed[id] = "earlier"
	}
	return j
}

func (j *memoryJournal) IsCompleted(id string) bool {
	_, ok := j.completed[id]
	return ok
}

func (j *memoryJournal) RecordCompleted(id, name string) error {
	j.completed[id] = name
	return nil
}

func (j *memoryJournal) Finish(failed int) error {
	j.finished = true
	j.failed = failed
	return nil
}
