package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrStopped is returned when an action is offered to a stopped loop.
var ErrStopped = errors.New("loop stopped")

// Target is the dispatch surface the loop drives; store.Store satisfies it.
type Target interface {
	Dispatch(action any) (any, error)
}

// Loop is the single-writer dispatch loop.
//
// Thread-safety model:
//   - Enqueue(), Schedule(), Submit(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
type Loop struct {
	target  Target
	clock   *Clock
	queue   *queue
	logger  *slog.Logger
	onError func(Item, error)
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock sets the clock used to stamp queued items.
func WithClock(c *Clock) Option {
	return func(l *Loop) {
		l.clock = c
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithErrorHandler registers fn to be called, on the Run goroutine, for
// every item whose dispatch failed. The failure is logged either way.
func WithErrorHandler(fn func(Item, error)) Option {
	return func(l *Loop) {
		l.onError = fn
	}
}

// New creates a loop that dispatches into target.
func New(target Target, opts ...Option) *Loop {
	l := &Loop{
		target: target,
		clock:  NewClock(),
		queue:  newQueue(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Enqueue adds action to the queue and returns its sequence number.
// Returns false if the loop has been stopped.
func (l *Loop) Enqueue(action any) (int64, bool) {
	return l.queue.push(l.clock, Item{Action: action})
}

// Schedule is Enqueue with an error result, for callers that accept a
// scheduler interface.
func (l *Loop) Schedule(action any) error {
	if _, ok := l.Enqueue(action); !ok {
		return ErrStopped
	}
	return nil
}

// Submit enqueues action and waits for its dispatch result.
//
// Must not be called from the Run goroutine (a listener or reducer): the
// loop would wait on itself.
func (l *Loop) Submit(ctx context.Context, action any) (any, error) {
	result := make(chan Result, 1)
	if _, ok := l.queue.push(l.clock, Item{Action: action, result: result}); !ok {
		return nil, ErrStopped
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-result:
		return r.Value, r.Err
	}
}

// Run starts the dispatch loop.
// Blocks until ctx is cancelled or Stop() is called and the queue drained.
//
// ERROR HANDLING: a failed dispatch, including a panicking reducer or
// listener, is logged with the item's sequence number and action type, and
// processing continues with the next item.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("loop starting")

	for {
		if item, ok := l.queue.tryPop(); ok {
			l.process(item)
			continue
		}

		select {
		case <-ctx.Done():
			l.logger.Info("loop stopping: context cancelled", "pending", l.queue.size())
			l.queue.close()
			l.abandon(ctx.Err())
			return ctx.Err()

		case <-l.queue.wait():
			// The signal channel closes when the queue is closed.
			if l.queue.isClosed() && l.queue.size() == 0 {
				l.logger.Info("loop stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run dispatches whatever is still queued and then
// returns.
func (l *Loop) Stop() {
	l.queue.close()
}

// Len returns the number of queued items.
func (l *Loop) Len() int {
	return l.queue.size()
}

// Clock returns the loop's clock.
func (l *Loop) Clock() *Clock {
	return l.clock
}

// process dispatches one item.
// CRITICAL: Called only from the Run goroutine.
func (l *Loop) process(item Item) {
	value, err := l.dispatch(item)
	if err != nil {
		l.logger.Error("queued dispatch failed",
			"error", err,
			"seq", item.Seq,
			"action", actionType(item.Action),
		)
		if l.onError != nil {
			l.onError(item, err)
		}
	} else {
		l.logger.Debug("queued dispatch",
			"seq", item.Seq,
			"action", actionType(item.Action),
		)
	}

	if item.result != nil {
		item.result <- Result{Value: value, Err: err}
	}
}

func (l *Loop) dispatch(item Item) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch panicked: %v", r)
		}
	}()
	return l.target.Dispatch(item.Action)
}

// abandon answers waiting Submit callers after cancellation.
func (l *Loop) abandon(cause error) {
	for {
		item, ok := l.queue.tryPop()
		if !ok {
			return
		}
		if item.result != nil {
			item.result <- Result{Err: cause}
		}
	}
}

type typed interface {
	ActionType() string
}

func actionType(action any) string {
	switch a := action.(type) {
	case typed:
		return a.ActionType()
	case map[string]any:
		return fmt.Sprint(a["type"])
	default:
		return fmt.Sprintf("%T", action)
	}
}
