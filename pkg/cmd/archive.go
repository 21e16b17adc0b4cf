// Package cmd holds the shared construction helpers used by the CLI
// entrypoints.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/caseflowhq/caseflow/pkg/persistence"
	"github.com/caseflowhq/caseflow/pkg/persistence/file"
	"github.com/caseflowhq/caseflow/pkg/persistence/postgresql"
)

// NewArchive builds a run archive from a database URL. A postgres://
// URL selects PostgreSQL; anything else is treated as a file root.
func NewArchive(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Archive, error) {
	switch parseArchiveProvider(databaseURL) {
	case "postgres", "postgresql":
		return postgresql.NewArchive(ctx, logger, databaseURL)
	default:
		return file.NewArchive(databaseURL), nil
	}
}

func parseArchiveProvider(databaseURL string) string {
	parts := strings.Split(databaseURL, "://")

	return parts[0]
}
