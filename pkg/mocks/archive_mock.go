package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/caseflowhq/caseflow/pkg/persistence"
)

// MockArchive is a mock implementation of the persistence.Archive
// interface.
type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) SaveRun(ctx context.Context, record *persistence.RunRecord) error {
	args := m.Called(ctx, record)

	return args.Error(0)
}

func (m *MockArchive) RunByID(ctx context.Context, id string) (*persistence.RunRecord, error) {
	args := m.Called(ctx, id)

	record, _ := args.Get(0).(*persistence.RunRecord)

	return record, args.Error(1)
}

func (m *MockArchive) Runs(ctx context.Context) ([]*persistence.RunRecord, error) {
	args := m.Called(ctx)

	records, _ := args.Get(0).([]*persistence.RunRecord)

	return records, args.Error(1)
}

func (m *MockArchive) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockArchive) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
