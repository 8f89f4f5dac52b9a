package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tag int

func TestRecord_ActionType(t *testing.T) {
	assert.Equal(t, "UP", Record{"type": "UP"}.ActionType())
	assert.Equal(t, "7", Record{"type": tag(7)}.ActionType())
	assert.Equal(t, "", Record{}.ActionType())
	assert.Equal(t, "", Record{"type": nil}.ActionType())
	assert.Equal(t, "", Record{"type": map[string]any{}}.ActionType())
}

func TestNewRecord(t *testing.T) {
	payload := map[string]any{"by": 2, "type": "ignored"}
	r := NewRecord("counter/increment", payload)

	assert.Equal(t, "counter/increment", r.ActionType())
	assert.Equal(t, 2, r["by"])
	assert.Equal(t, "ignored", payload["type"], "payload is not mutated")
}

func TestValidateAction(t *testing.T) {
	act, err := ValidateAction(map[string]any{"type": "UP", "n": 1})
	require.NoError(t, err)
	rec, ok := act.(Record)
	require.True(t, ok)
	assert.Equal(t, 1, rec["n"])

	act, err = ValidateAction(&typedUp{})
	require.NoError(t, err)
	assert.Equal(t, "UP", act.ActionType())

	_, err = ValidateAction(5)
	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, ErrCodeInvalidAction, se.Code)
	assert.Equal(t, "int", se.Details["value_type"])
}

func TestError_Format(t *testing.T) {
	err := NewReentrancyError("UP")
	assert.Equal(t, "REENTRANT_DISPATCH: reducers and listeners may not dispatch while a dispatch is in progress (action=UP)", err.Error())

	cfg := NewConfigurationError("bad %s", "wiring")
	assert.Equal(t, "CONFIGURATION: bad wiring", cfg.Error())
}

func TestError_WrappedPredicates(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), NewReentrancyError("X"))

	assert.True(t, IsReentrancyError(wrapped))
	assert.False(t, IsConfigurationError(wrapped))
	assert.ErrorIs(t, wrapped, ErrReentrancy)
	assert.NotErrorIs(t, wrapped, ErrInvalidAction)
}
