package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/flux/internal/store"
)

type loggerConfig struct {
	level      slog.Level
	withStates bool
	predicate  func(action any) bool
}

// LoggerOption configures Logger.
type LoggerOption func(*loggerConfig)

// WithLevel sets the level for successful dispatches. Failures are always
// logged at Warn. Default: slog.LevelDebug.
func WithLevel(level slog.Level) LoggerOption {
	return func(c *loggerConfig) {
		c.level = level
	}
}

// WithStates includes the previous and next state in each log line.
func WithStates() LoggerOption {
	return func(c *loggerConfig) {
		c.withStates = true
	}
}

// WithPredicate limits logging to dispatches for which fn returns true.
func WithPredicate(fn func(action any) bool) LoggerOption {
	return func(c *loggerConfig) {
		c.predicate = fn
	}
}

// Logger returns a stage that logs every dispatch passing through it.
func Logger(logger *slog.Logger, opts ...LoggerOption) store.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := loggerConfig{level: slog.LevelDebug}
	for _, opt := range opts {
		opt(&cfg)
	}

	return store.MiddlewareFunc(func(api store.API, next store.Dispatcher) store.Dispatcher {
		return func(action any) (any, error) {
			if cfg.predicate != nil && !cfg.predicate(action) {
				return next(action)
			}

			prev := api.GetState()
			start := time.Now()
			result, err := next(action)
			elapsed := time.Since(start)
			curr := api.GetState()

			attrs := []any{
				"action", label(action),
				"duration", elapsed,
				"changed", !store.Same(prev, curr),
			}
			if cfg.withStates {
				attrs = append(attrs, "prev", prev, "next", curr)
			}

			if err != nil {
				logger.Warn("dispatch failed", append(attrs, "error", err)...)
				return result, err
			}
			logger.Log(context.Background(), cfg.level, "dispatch", attrs...)
			return result, nil
		}
	})
}
