package persistence

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveError_WrapsCause(t *testing.T) {
	t.Parallel()

	err := NewArchiveError("RunByID", "run-12345678", ErrRunNotFound)

	assert.Contains(t, err.Error(), "RunByID")
	assert.Contains(t, err.Error(), "run-12345678")
	assert.True(t, errors.Is(err, ErrRunNotFound))
	assert.True(t, IsRunNotFound(err))
}

func TestArchiveError_WithoutRunID(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk full")
	err := NewArchiveError("Runs", "", cause)

	assert.Contains(t, err.Error(), "Runs operation failed")
	require.False(t, IsRunNotFound(err))
	assert.True(t, errors.Is(err, cause))
}

func TestIsRunNotFound_OtherErrors(t *testing.T) {
	t.Parallel()

	assert.False(t, IsRunNotFound(errors.New("something else")))
	assert.False(t, IsRunNotFound(nil))
}
