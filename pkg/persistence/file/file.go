// Package file provides a file-based run archive. Each run is stored
// as one JSON document under <root>/runs/.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/caseflowhq/caseflow/pkg/persistence"
)

// Archive implements the persistence.Archive interface on the file
// system.
type Archive struct {
	root string
}

// NewArchive creates a file archive rooted at the given directory. A
// "file://" prefix is stripped so the same URL works for both
// backends.
func NewArchive(root string) *Archive {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Archive{root: cleanRoot}
}

func (a *Archive) runsDir() string {
	return path.Join(a.root, "runs")
}

// SaveRun writes the run record as an indented JSON file, replacing
// any existing record with the same ID.
func (a *Archive) SaveRun(_ context.Context, record *persistence.RunRecord) error {
	err := os.MkdirAll(a.runsDir(), 0750)
	if err != nil {
		return persistence.NewArchiveError("SaveRun", record.ID, fmt.Errorf("failed to create runs directory: %w", err))
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return persistence.NewArchiveError("SaveRun", record.ID, fmt.Errorf("failed to marshal run: %w", err))
	}

	filePath := path.Join(a.runsDir(), record.ID+".json")

	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return persistence.NewArchiveError("SaveRun", record.ID, err)
	}

	return nil
}

// RunByID reads one archived run from disk.
func (a *Archive) RunByID(_ context.Context, id string) (*persistence.RunRecord, error) {
	filePath := filepath.Clean(path.Join(a.runsDir(), id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewArchiveError("RunByID", id, persistence.ErrRunNotFound)
		}

		return nil, persistence.NewArchiveError("RunByID", id, err)
	}

	var record persistence.RunRecord

	err = json.Unmarshal(body, &record)
	if err != nil {
		return nil, persistence.NewArchiveError("RunByID", id, fmt.Errorf("failed to unmarshal run: %w", err))
	}

	return &record, nil
}

// Runs returns all archived runs sorted newest first.
func (a *Archive) Runs(ctx context.Context) ([]*persistence.RunRecord, error) {
	if _, err := os.Stat(a.runsDir()); os.IsNotExist(err) {
		return make([]*persistence.RunRecord, 0), nil
	}

	root := os.DirFS(a.runsDir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, persistence.NewArchiveError("Runs", "", fmt.Errorf("failed to list run files: %w", err))
	}

	records := make([]*persistence.RunRecord, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		runID := file[:len(file)-5] // Remove .json extension

		record, err := a.RunByID(ctx, runID)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	return records, nil
}

// HealthCheck verifies the root directory exists.
func (a *Archive) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(a.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file-based archives there
// is nothing to clean up.
func (a *Archive) Close(_ context.Context) error {
	return nil
}
