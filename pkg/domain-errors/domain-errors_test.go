package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesOriginalCode(t *testing.T) {
	inner := New(CodeConflict, "edge already exists")
	wrapped := Wrap(inner, CodeInternal, "failed to record relation")

	assert.True(t, HasCode(wrapped, CodeConflict))
	assert.False(t, HasCode(wrapped, CodeInternal))
	assert.Equal(t, "failed to record relation", wrapped.Error())
}

func TestWrapForeignError(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	wrapped := Wrap(inner, CodeUnavailable, "store unreachable")

	assert.True(t, HasCode(wrapped, CodeUnavailable))
	assert.ErrorIs(t, wrapped, inner)
}

func TestIsMatchesByCode(t *testing.T) {
	err := New(CodeDecryption, "bad padding")
	require.Error(t, err)
	assert.True(t, errors.Is(err, &Error{Code: CodeDecryption}))
	assert.False(t, errors.Is(err, &Error{Code: CodeClassification}))
}

func TestErrorStringFallsBackToCode(t *testing.T) {
	err := &Error{Code: CodeNoStrategy}
	assert.Equal(t, "no_strategy", err.Error())
}
