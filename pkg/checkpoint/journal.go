package checkpoint

import (
	"fmt"

	"pxfollow/pkg/follows"
	"pxfollow/pkg/logger"
	"pxfollow/pkg/pixiv"
)

// Journal adapts a Manager and its Checkpoint to follows.Journal
type Journal struct {
	manager    *Manager
	checkpoint *Checkpoint
}

var _ follows.Journal = (*Journal)(nil)

// Opener returns a follows.JournalOpener storing journals in dir, or in the
// platform data directory when dir is empty
func Opener(dir string, log logger.Logger) follows.JournalOpener {
	return func(subjectID string, target pixiv.Visibility, resume bool) (follows.Journal, error) {
		var manager *Manager
		var err error
		if dir == "" {
			manager, err = NewManager(subjectID, target)
		} else {
			manager, err = NewManagerInDir(dir, subjectID, target)
		}
		if err != nil {
			return nil, err
		}
		manager.SetLogger(log)
		return OpenJournal(manager, resume)
	}
}

// OpenJournal continues the stored journal when resume is set and one
// exists; otherwise it starts a new one
func OpenJournal(manager *Manager, resume bool) (*Journal, error) {
	if resume {
		checkpoint, err := manager.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to resume journal: %w", err)
		}
		if checkpoint != nil {
			checkpoint.Runs++
			if err := manager.Save(checkpoint); err != nil {
				return nil, err
			}
			return &Journal{manager: manager, checkpoint: checkpoint}, nil
		}
	}

	checkpoint, err := manager.Create()
	if err != nil {
		return nil, err
	}
	return &Journal{manager: manager, checkpoint: checkpoint}, nil
}

func (j *Journal) IsCompleted(userID string) bool {
	return j.checkpoint.IsCompleted(userID)
}

func (j *Journal) RecordCompleted(userID, name string) error {
	return j.manager.RecordCompleted(j.checkpoint, userID, name)
}

// Finish deletes the journal after a run without failures and keeps it
// for --resume otherwise
func (j *Journal) Finish(failed int) error {
	if failed == 0 {
		return j.manager.Delete()
	}
	j.checkpoint.LastFailed = failed
	if err := j.manager.Save(j.checkpoint); err != nil {
		return err
	}
	j.manager.logger.InfoWithFields("Journal kept, rerun with --resume to skip finished users", map[string]interface{}{
		"path":   j.manager.Path(),
		"failed": failed,
	})
	return nil
}

// Checkpoint returns the journal's current state
func (j *Journal) Checkpoint() *Checkpoint {
	return j.checkpoint
}
