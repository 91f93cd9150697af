package assignment

import (
	"fmt"

	"github.com/pkg/errors"
)

// JudgeError is one failed judge-side write of a sync.
type JudgeError struct {
	JudgeID string `json:"judge_id"`
	Op      string `json:"op"`
	Error   string `json:"error"`
}

// SyncError is a partial sync failure: the project side was written but some judge-side writes were not.
// Running the same sync again converges both sides. RolledBack is set when the writes ran in a
// transaction that was rolled back instead.
type SyncError struct {
	Result     SyncResult
	RolledBack bool
}

func (e *SyncError) Error() string {
	msg := fmt.Sprintf("partial sync failure on project %s: %d judge write(s) failed", e.Result.ProjectID, len(e.Result.Errors))
	if e.RolledBack {
		msg += " (rolled back)"
	}
	return msg
}

func IsPartialSyncFailure(err error) bool {
	_, ok := errors.Cause(err).(*SyncError)
	return ok
}
