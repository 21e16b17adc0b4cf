// Package postgresql provides the PostgreSQL run archive.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// Registers the "postgres" database/sql driver.
	_ "github.com/lib/pq"

	"github.com/caseflowhq/caseflow/pkg/persistence"
	"github.com/caseflowhq/caseflow/pkg/persistence/sqlbase"
)

// Archive implements the persistence.Archive interface on PostgreSQL.
type Archive struct {
	db      *sql.DB
	logger  *slog.Logger
	runRepo *RunRepository
}

// NewArchive opens a connection to the database, runs migrations and
// returns the archive.
func NewArchive(ctx context.Context, logger *slog.Logger, databaseURL string) (*Archive, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Archive{
		db:      database,
		logger:  logger,
		runRepo: NewRunRepository(database, logger),
	}, nil
}

// SaveRun archives a finished run.
func (a *Archive) SaveRun(ctx context.Context, record *persistence.RunRecord) error {
	return a.runRepo.Save(ctx, record)
}

// RunByID returns an archived run by its ID.
func (a *Archive) RunByID(ctx context.Context, id string) (*persistence.RunRecord, error) {
	return a.runRepo.GetByID(ctx, id)
}

// Runs returns all archived runs, newest first.
func (a *Archive) Runs(ctx context.Context) ([]*persistence.RunRecord, error) {
	return a.runRepo.GetAll(ctx)
}

// HealthCheck verifies the database connection is healthy.
func (a *Archive) HealthCheck(ctx context.Context) error {
	err := a.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (a *Archive) Close(_ context.Context) error {
	if a.db != nil {
		err := a.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
