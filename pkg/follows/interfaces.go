package follows

import (
	"context"

	"pxfollow/pkg/pixiv"
)

// Lister fetches pages of the follow list
type Lister interface {
	Following(ctx context.Context, userID string, offset, limit int, v pixiv.Visibility) (*pixiv.FollowingBody, error)
}

// Restrictor changes the visibility of one followed account
type Restrictor interface {
	SetRestrict(ctx context.Context, session pixiv.Session, targetUserID string, v pixiv.Visibility) error
}

// Client is the part of *pixiv.Client a pipeline needs
type Client interface {
	Lister
	Restrictor
}

// Journal remembers which accounts a previous run already switched
type Journal interface {
	IsCompleted(userID string) bool
	RecordCompleted(userID, name string) error
	// Finish closes the journal; failed is the number of changes that did not succeed
	Finish(failed int) error
}

// JournalOpener opens the journal of one subject and target visibility.
// resume false starts a fresh journal.
type JournalOpener func(subjectID string, target pixiv.Visibility, resume bool) (Journal, error)
