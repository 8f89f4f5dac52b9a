package schema

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/roach88/flux/internal/store"
)

type middlewareConfig struct {
	strict bool
	logger *slog.Logger
}

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareConfig)

// Strict rejects action types the schema does not declare. By default
// they pass through unchecked.
func Strict() MiddlewareOption {
	return func(c *middlewareConfig) {
		c.strict = true
	}
}

// WithLogger sets the logger for rejected actions. Default: slog.Default().
func WithLogger(logger *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.logger = logger
	}
}

// Middleware returns a stage rejecting records that fail s with an
// invalid-action error. Values that are not actions (thunks, tasks) and
// internal "@@" actions pass through untouched.
func Middleware(s *Schema, opts ...MiddlewareOption) store.Middleware {
	cfg := middlewareConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	return store.MiddlewareFunc(func(api store.API, next store.Dispatcher) store.Dispatcher {
		return func(action any) (any, error) {
			var a store.Action
			switch v := action.(type) {
			case store.Action:
				a = v
			case map[string]any:
				a = store.Record(v)
			default:
				return next(action)
			}
			if strings.HasPrefix(a.ActionType(), "@@") {
				return next(action)
			}

			err := s.Validate(a)
			if errors.Is(err, ErrUnknownType) && !cfg.strict {
				err = nil
			}
			if err != nil {
				cfg.logger.Warn("action rejected by schema", "action", a.ActionType(), "error", err)
				return nil, store.NewInvalidActionError(action, err.Error())
			}
			return next(action)
		}
	})
}
