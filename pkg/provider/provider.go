// Package provider defines the seam between the pipeline engine and the
// capability backends that execute abilities. The engine is agnostic to
// transport; anything satisfying CapabilityProvider can back a stage.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/caseflowhq/caseflow/pkg/models"
)

// CapabilityProvider executes named abilities against a read view of
// run state and returns a field mapping.
type CapabilityProvider interface {
	// ID is the provider identifier referenced by ability descriptors.
	ID() string

	// Abilities lists every ability name this provider can execute.
	// The registry validates the pipeline table against this set at
	// construction time.
	Abilities() []string

	// Invoke executes one ability. Any invocation problem must surface
	// as an error; the dispatcher wraps it into a ProviderError.
	Invoke(ctx context.Context, ability string, view models.FieldMapping) (models.FieldMapping, error)
}

// ProviderError reports a failed or malformed ability invocation. It is
// never swallowed: the dispatcher surfaces it to the stage executor,
// which surfaces it to the engine, which aborts the run.
type ProviderError struct {
	ProviderID string
	Ability    string
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s failed executing %s: %v", e.ProviderID, e.Ability, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps an invocation failure with its origin.
func NewProviderError(providerID, ability string, err error) *ProviderError {
	return &ProviderError{ProviderID: providerID, Ability: ability, Err: err}
}

// IsProviderError checks whether err is (or wraps) a ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError

	return errors.As(err, &pe)
}
