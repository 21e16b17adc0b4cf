package workflow

import (
	"errors"
	"fmt"

	"github.com/caseflowhq/caseflow/pkg/models"
)

// ErrRunCancelled indicates the caller aborted the run between ability
// dispatches.
var ErrRunCancelled = errors.New("run cancelled")

// RunError is returned when a run aborts before producing a final
// payload. It carries the stage that failed and the partially built run
// state, including the execution log up to the failure point, so the
// caller can diagnose which stage and ability failed.
type RunError struct {
	Stage string
	State *models.RunState
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s aborted in stage %s: %v", e.State.ID, e.Stage, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// IsCancelled checks whether err indicates a caller-cancelled run.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrRunCancelled)
}

// StatusForError maps a run-aborting error to a completion status.
func StatusForError(err error) string {
	if IsCancelled(err) {
		return models.RunStatusCancelled
	}

	return models.RunStatusFailed
}
