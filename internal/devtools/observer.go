package devtools

import (
	"context"
	"log/slog"

	"github.com/roach88/flux/internal/store"
)

// Event describes one performed action.
type Event struct {
	// ID is the history entry's stable identifier. It increases by one per
	// performed action and is never reused, even after commits.
	ID     int64
	Index  int
	Action store.Action
	State  store.State
}

// Observer receives every performed action after its dispatch returns.
// Controls are not observed. OnAction runs on the dispatching goroutine
// and must not dispatch.
type Observer interface {
	OnAction(ctx context.Context, event Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, event Event)

// OnAction calls f(ctx, event).
func (f ObserverFunc) OnAction(ctx context.Context, event Event) {
	f(ctx, event)
}

// MultiObserver fans out events to multiple observers.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver creates a MultiObserver that forwards events to all
// non-nil observers.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	filtered := make([]Observer, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			filtered = append(filtered, obs)
		}
	}
	return &MultiObserver{observers: filtered}
}

func (m *MultiObserver) OnAction(ctx context.Context, event Event) {
	for _, obs := range m.observers {
		obs.OnAction(ctx, event)
	}
}

// SlogObserver logs each performed action.
type SlogObserver struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogObserver creates an observer logging at level.
func NewSlogObserver(logger *slog.Logger, level slog.Level) *SlogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogObserver{logger: logger, level: level}
}

func (o *SlogObserver) OnAction(ctx context.Context, event Event) {
	o.logger.Log(ctx, o.level, "action performed",
		"id", event.ID,
		"index", event.Index,
		"action", event.Action.ActionType(),
	)
}
