// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/caseflowhq/caseflow/pkg/models"
)

// MockCapabilityProvider is a mock implementation of the
// provider.CapabilityProvider interface.
type MockCapabilityProvider struct {
	mock.Mock
}

func (m *MockCapabilityProvider) ID() string {
	args := m.Called()

	return args.String(0)
}

func (m *MockCapabilityProvider) Abilities() []string {
	args := m.Called()

	abilities, _ := args.Get(0).([]string)

	return abilities
}

func (m *MockCapabilityProvider) Invoke(ctx context.Context, ability string, view models.FieldMapping) (models.FieldMapping, error) {
	args := m.Called(ctx, ability, view)

	result, _ := args.Get(0).(models.FieldMapping)

	return result, args.Error(1)
}
