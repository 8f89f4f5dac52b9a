package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/roach88/flux/internal/store"
)

// ErrPanic matches every *PanicError.
var ErrPanic = errors.New("dispatch panicked")

// PanicError carries a value recovered from a reducer or listener panic.
type PanicError struct {
	Action string
	Value  any
	Stack  []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("dispatch panicked (action=%s): %v", e.Action, e.Value)
}

// Is reports whether target is ErrPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrPanic
}

// Unwrap exposes a recovered error value, such as the configuration
// error a combined reducer panics with when a slice returns nil.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Recoverer returns a stage that converts panics raised further down the
// chain into a *PanicError result. Place it first so it covers every other
// stage.
//
// A reducer panic leaves the state untouched. A listener panic happens
// after the new state is installed; the remaining listeners of that pass
// do not run.
func Recoverer(logger *slog.Logger) store.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return store.MiddlewareFunc(func(api store.API, next store.Dispatcher) store.Dispatcher {
		return func(action any) (result any, err error) {
			defer func() {
				if r := recover(); r != nil {
					pe := &PanicError{Action: label(action), Value: r, Stack: debug.Stack()}
					logger.Error("recovered dispatch panic", "action", pe.Action, "panic", r)
					result, err = nil, pe
				}
			}()
			return next(action)
		}
	})
}
