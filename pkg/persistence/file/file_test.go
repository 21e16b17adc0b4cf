package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseflowhq/caseflow/pkg/models"
	"github.com/caseflowhq/caseflow/pkg/persistence"
)

func completedRecord(runID, ticketID string) *persistence.RunRecord {
	return &persistence.RunRecord{
		ID:       runID,
		TicketID: ticketID,
		Status:   models.RunStatusCompleted,
		Payload: &models.FinalPayload{
			RunID:    runID,
			TicketID: ticketID,
			Processing: models.Processing{
				StagesCompleted: 11,
				Status:          models.RunStatusCompleted,
			},
			Results: models.NewOrderedResults(),
		},
		ExecutionLog: []models.ExecutionLogEntry{},
	}
}

func TestArchive_SaveAndLoadRun(t *testing.T) {
	t.Parallel()

	archive := NewArchive(t.TempDir())
	ctx := context.Background()

	record := completedRecord("run-11111111", "TKT-1")
	require.NoError(t, archive.SaveRun(ctx, record))

	loaded, err := archive.RunByID(ctx, "run-11111111")
	require.NoError(t, err)

	assert.Equal(t, "run-11111111", loaded.ID)
	assert.Equal(t, "TKT-1", loaded.TicketID)
	assert.Equal(t, models.RunStatusCompleted, loaded.Status)
	require.NotNil(t, loaded.Payload)
	assert.Equal(t, 11, loaded.Payload.Processing.StagesCompleted)
	assert.False(t, loaded.CreatedAt.IsZero())
}

func TestArchive_SaveOverwrites(t *testing.T) {
	t.Parallel()

	archive := NewArchive(t.TempDir())
	ctx := context.Background()

	record := completedRecord("run-22222222", "TKT-2")
	require.NoError(t, archive.SaveRun(ctx, record))

	record.Status = models.RunStatusFailed
	record.FailureReason = "provider blew up"
	require.NoError(t, archive.SaveRun(ctx, record))

	loaded, err := archive.RunByID(ctx, "run-22222222")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, loaded.Status)
	assert.Equal(t, "provider blew up", loaded.FailureReason)
}

func TestArchive_RunByIDNotFound(t *testing.T) {
	t.Parallel()

	archive := NewArchive(t.TempDir())

	_, err := archive.RunByID(context.Background(), "run-missing")
	require.Error(t, err)
	assert.True(t, persistence.IsRunNotFound(err))
}

func TestArchive_RunsNewestFirst(t *testing.T) {
	t.Parallel()

	archive := NewArchive(t.TempDir())
	ctx := context.Background()

	older := completedRecord("run-aaaaaaaa", "TKT-1")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, archive.SaveRun(ctx, older))

	newer := completedRecord("run-bbbbbbbb", "TKT-2")
	newer.CreatedAt = time.Now().UTC()
	require.NoError(t, archive.SaveRun(ctx, newer))

	records, err := archive.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "run-bbbbbbbb", records[0].ID)
	assert.Equal(t, "run-aaaaaaaa", records[1].ID)
}

func TestArchive_RunsEmptyDirectory(t *testing.T) {
	t.Parallel()

	archive := NewArchive(t.TempDir())

	records, err := archive.Runs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestArchive_HealthCheck(t *testing.T) {
	t.Parallel()

	archive := NewArchive(t.TempDir())
	require.NoError(t, archive.HealthCheck(context.Background()))

	missing := NewArchive("/nonexistent/caseflow-archive")
	require.Error(t, missing.HealthCheck(context.Background()))
}

func TestNewArchive_StripsFileScheme(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive := NewArchive("file://" + dir)

	require.NoError(t, archive.HealthCheck(context.Background()))
}
