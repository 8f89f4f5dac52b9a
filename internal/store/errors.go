package store

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeConfiguration indicates bad reducer, middleware or enhancer wiring.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"

	// ErrCodeInvalidAction indicates a dispatched value is not a typed record.
	ErrCodeInvalidAction ErrorCode = "INVALID_ACTION"

	// ErrCodeReentrancy indicates a dispatch while another is in flight.
	ErrCodeReentrancy ErrorCode = "REENTRANT_DISPATCH"
)

// Sentinels for errors.Is matching against *Error by code.
var (
	ErrConfiguration = &Error{Code: ErrCodeConfiguration}
	ErrInvalidAction = &Error{Code: ErrCodeInvalidAction}
	ErrReentrancy    = &Error{Code: ErrCodeReentrancy}
)

// Error represents a failure detected by the store, a composer or a
// middleware chain. Errors are returned synchronously and never retried.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// ActionType is the type of the rejected action, when known.
	ActionType string

	// Details contains additional context.
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ActionType != "" {
		return fmt.Sprintf("%s: %s (action=%s)", e.Code, e.Message, e.ActionType)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewConfigurationError creates an Error for bad wiring.
func NewConfigurationError(format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeConfiguration,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewInvalidActionError creates an Error for a rejected action value.
func NewInvalidActionError(value any, reason string) *Error {
	return &Error{
		Code:    ErrCodeInvalidAction,
		Message: reason,
		Details: map[string]string{
			"value_type": fmt.Sprintf("%T", value),
		},
	}
}

// NewReentrancyError creates an Error for a dispatch attempted while another
// dispatch on the same store is in progress.
func NewReentrancyError(actionType string) *Error {
	return &Error{
		Code:       ErrCodeReentrancy,
		Message:    "reducers and listeners may not dispatch while a dispatch is in progress",
		ActionType: actionType,
	}
}

// IsConfigurationError returns true if err is a configuration error.
// Uses errors.As to handle wrapped errors.
func IsConfigurationError(err error) bool {
	return hasCode(err, ErrCodeConfiguration)
}

// IsInvalidActionError returns true if err is an invalid action error.
func IsInvalidActionError(err error) bool {
	return hasCode(err, ErrCodeInvalidAction)
}

// IsReentrancyError returns true if err is a reentrancy error.
func IsReentrancyError(err error) bool {
	return hasCode(err, ErrCodeReentrancy)
}

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
