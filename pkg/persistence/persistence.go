// Package persistence defines the run archive contract and its error
// types. Implementations live in the file and postgresql subpackages.
package persistence

import (
	"context"
	"time"

	"github.com/caseflowhq/caseflow/pkg/models"
)

// RunRecord is the archived form of a finished run. Completed runs
// carry the assembled payload; failed and cancelled runs carry the
// failure reason and whatever log entries accrued before the abort.
type RunRecord struct {
	ID            string                     `json:"id"`
	TicketID      string                     `json:"ticket_id"`
	Status        string                     `json:"status"`
	Stage         string                     `json:"stage,omitempty"`
	Payload       *models.FinalPayload       `json:"payload,omitempty"`
	FailureReason string                     `json:"failure_reason,omitempty"`
	ExecutionLog  []models.ExecutionLogEntry `json:"execution_log"`
	CreatedAt     time.Time                  `json:"created_at"`
}

// NewCompletedRecord builds the archive record for a successful run.
func NewCompletedRecord(runID string, payload *models.FinalPayload) *RunRecord {
	return &RunRecord{
		ID:           runID,
		TicketID:     payload.TicketID,
		Status:       payload.Processing.Status,
		Payload:      payload,
		ExecutionLog: payload.ExecutionLog,
	}
}

// NewAbortedRecord builds the archive record for a run that failed or
// was cancelled at the given stage.
func NewAbortedRecord(state *models.RunState, status, stage, reason string) *RunRecord {
	return &RunRecord{
		ID:            state.ID,
		TicketID:      state.Ticket.ID,
		Status:        status,
		Stage:         stage,
		FailureReason: reason,
		ExecutionLog:  state.Log(),
	}
}

// Archive stores finished runs for later inspection.
type Archive interface {
	// SaveRun archives a finished run, replacing any record with the
	// same ID.
	SaveRun(ctx context.Context, record *RunRecord) error

	// RunByID returns an archived run or ErrRunNotFound.
	RunByID(ctx context.Context, id string) (*RunRecord, error)

	// Runs returns all archived runs, newest first.
	Runs(ctx context.Context) ([]*RunRecord, error)

	// HealthCheck verifies the archive backend is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases the archive's resources.
	Close(ctx context.Context) error
}
