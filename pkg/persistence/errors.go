package persistence

import (
	"errors"
	"fmt"
)

// ErrRunNotFound indicates no archived run exists for the given ID.
var ErrRunNotFound = errors.New("run not found")

// ArchiveError wraps archive operation failures with context.
type ArchiveError struct {
	Op    string // Operation being performed (e.g., "SaveRun", "RunByID")
	RunID string // Run ID if applicable
	Err   error  // Underlying error
}

func (e *ArchiveError) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("%s operation failed for run %s: %v", e.Op, e.RunID, e.Err)
	}

	return fmt.Sprintf("%s operation failed: %v", e.Op, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for archive errors.
func (e *ArchiveError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewArchiveError creates a new archive error with context.
func NewArchiveError(op, runID string, err error) *ArchiveError {
	return &ArchiveError{
		Op:    op,
		RunID: runID,
		Err:   err,
	}
}

// IsRunNotFound checks if an error indicates an archived run was not found.
func IsRunNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}
