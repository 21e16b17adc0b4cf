package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caseflowhq/caseflow/pkg/models"
	"github.com/caseflowhq/caseflow/pkg/persistence"
)

// RunRepository handles run-related database operations.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *sql.DB, logger *slog.Logger) *RunRepository {
	return &RunRepository{db: db, logger: logger}
}

// Save upserts a run record, serializing the payload and execution log
// as JSONB.
func (r *RunRepository) Save(ctx context.Context, record *persistence.RunRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	var payloadJSON []byte

	if record.Payload != nil {
		data, err := json.Marshal(record.Payload)
		if err != nil {
			return persistence.NewArchiveError("SaveRun", record.ID, fmt.Errorf("failed to marshal payload: %w", err))
		}

		payloadJSON = data
	}

	logJSON, err := json.Marshal(record.ExecutionLog)
	if err != nil {
		return persistence.NewArchiveError("SaveRun", record.ID, fmt.Errorf("failed to marshal execution log: %w", err))
	}

	query := `
		INSERT INTO runs (id, ticket_id, status, stage, payload, failure_reason, execution_log, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			ticket_id = EXCLUDED.ticket_id,
			status = EXCLUDED.status,
			stage = EXCLUDED.stage,
			payload = EXCLUDED.payload,
			failure_reason = EXCLUDED.failure_reason,
			execution_log = EXCLUDED.execution_log
	`

	_, err = r.db.ExecContext(ctx, query,
		record.ID,
		record.TicketID,
		record.Status,
		nullableString(record.Stage),
		nullableBytes(payloadJSON),
		nullableString(record.FailureReason),
		logJSON,
		record.CreatedAt,
	)
	if err != nil {
		return persistence.NewArchiveError("SaveRun", record.ID, err)
	}

	return nil
}

// GetByID returns a run record by its ID.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*persistence.RunRecord, error) {
	query := `
		SELECT
			id
		  , ticket_id
		  , status
		  , stage
		  , payload
		  , failure_reason
		  , execution_log
		  , created_at
		FROM runs
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)

	record, err := r.scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewArchiveError("RunByID", id, persistence.ErrRunNotFound)
		}

		return nil, persistence.NewArchiveError("RunByID", id, err)
	}

	return record, nil
}

// GetAll returns all run records, newest first.
func (r *RunRepository) GetAll(ctx context.Context) ([]*persistence.RunRecord, error) {
	query := `
		SELECT
			id
		  , ticket_id
		  , status
		  , stage
		  , payload
		  , failure_reason
		  , execution_log
		  , created_at
		FROM runs
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, persistence.NewArchiveError("Runs", "", fmt.Errorf("failed to query runs: %w", err))
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "Failed to close rows", "error", err)
		}
	}()

	records := make([]*persistence.RunRecord, 0)

	for rows.Next() {
		record, err := r.scanRun(rows)
		if err != nil {
			return nil, persistence.NewArchiveError("Runs", "", fmt.Errorf("failed to scan run: %w", err))
		}

		records = append(records, record)
	}

	err = rows.Err()
	if err != nil {
		return nil, persistence.NewArchiveError("Runs", "", fmt.Errorf("error iterating runs: %w", err))
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *RunRepository) scanRun(row rowScanner) (*persistence.RunRecord, error) {
	var (
		record        persistence.RunRecord
		stage         sql.NullString
		payloadJSON   []byte
		failureReason sql.NullString
		logJSON       []byte
	)

	err := row.Scan(
		&record.ID,
		&record.TicketID,
		&record.Status,
		&stage,
		&payloadJSON,
		&failureReason,
		&logJSON,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Stage = stage.String
	record.FailureReason = failureReason.String

	if len(payloadJSON) > 0 {
		var payload models.FinalPayload

		err = json.Unmarshal(payloadJSON, &payload)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}

		record.Payload = &payload
	}

	if len(logJSON) > 0 {
		err = json.Unmarshal(logJSON, &record.ExecutionLog)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution log: %w", err)
		}
	}

	return &record, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}

	return value
}

func nullableBytes(value []byte) any {
	if len(value) == 0 {
		return nil
	}

	return value
}
