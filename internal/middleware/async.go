package middleware

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/flux/internal/retry"
	"github.com/roach88/flux/internal/store"
)

// Suffixes appended to a Task's Type for its lifecycle actions.
const (
	SuffixPending   = "/pending"
	SuffixFulfilled = "/fulfilled"
	SuffixRejected  = "/rejected"
)

// Task is a dispatchable unit of asynchronous work.
//
// Dispatching a Task dispatches "<Type>/pending" immediately, runs Run on
// its own goroutine, and later schedules "<Type>/fulfilled" with the result
// under "payload", or "<Type>/rejected" with the error text under "error".
// All three records carry "request_id" to correlate them.
type Task struct {
	Type string
	Run  func(ctx context.Context) (any, error)
}

// Scheduler accepts actions produced off the dispatch goroutine.
// *loop.Loop implements it.
type Scheduler interface {
	Schedule(action any) error
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(action any) error

// Schedule calls f(action).
func (f SchedulerFunc) Schedule(action any) error {
	return f(action)
}

// Pending is the dispatch result of a Task.
type Pending struct {
	RequestID int64
	done      chan struct{}
	value     any
	err       error
}

// Done is closed once the task has settled and its outcome was scheduled.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Result blocks until the task settles and returns its outcome.
func (p *Pending) Result() (any, error) {
	<-p.done
	return p.value, p.err
}

type asyncConfig struct {
	retry  retry.Config
	ctx    context.Context
	logger *slog.Logger
}

// AsyncOption configures Async.
type AsyncOption func(*asyncConfig)

// WithRetry sets the retry policy for task bodies. Default: retry.Disabled().
func WithRetry(cfg retry.Config) AsyncOption {
	return func(c *asyncConfig) {
		c.retry = cfg
	}
}

// WithContext sets the parent context passed to task bodies. Cancelling it
// cancels in-flight tasks, which then settle as rejected.
func WithContext(ctx context.Context) AsyncOption {
	return func(c *asyncConfig) {
		c.ctx = ctx
	}
}

// WithAsyncLogger sets the logger. Default: slog.Default().
func WithAsyncLogger(logger *slog.Logger) AsyncOption {
	return func(c *asyncConfig) {
		c.logger = logger
	}
}

// AsyncMiddleware runs dispatched Tasks. Create with Async.
type AsyncMiddleware struct {
	sched  Scheduler
	cfg    asyncConfig
	nextID atomic.Int64
	wg     sync.WaitGroup
}

// Async returns a stage that runs Tasks and delivers their outcomes
// through sched.
func Async(sched Scheduler, opts ...AsyncOption) *AsyncMiddleware {
	cfg := asyncConfig{
		retry:  retry.Disabled(),
		ctx:    context.Background(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &AsyncMiddleware{sched: sched, cfg: cfg}
}

// Wait blocks until every started task has settled and scheduled its
// outcome.
func (m *AsyncMiddleware) Wait() {
	m.wg.Wait()
}

// Wrap implements store.Middleware.
func (m *AsyncMiddleware) Wrap(api store.API, next store.Dispatcher) store.Dispatcher {
	return func(action any) (any, error) {
		var task Task
		switch t := action.(type) {
		case Task:
			task = t
		case *Task:
			if t == nil {
				return nil, store.NewInvalidActionError(action, "nil task")
			}
			task = *t
		default:
			return next(action)
		}

		if task.Type == "" {
			return nil, store.NewInvalidActionError(action, "task must have a non-empty Type")
		}
		if task.Run == nil {
			return nil, store.NewInvalidActionError(action, "task must have a Run function")
		}
		p, err := m.start(api, task)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

func (m *AsyncMiddleware) start(api store.API, task Task) (*Pending, error) {
	p := &Pending{RequestID: m.nextID.Add(1), done: make(chan struct{})}

	if _, err := api.Dispatch(store.Record{
		"type":       task.Type + SuffixPending,
		"request_id": p.RequestID,
	}); err != nil {
		return nil, err
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(p.done)

		p.value, p.err = retry.Do(m.cfg.ctx, m.cfg.retry, task.Run)

		outcome := store.Record{"request_id": p.RequestID}
		if p.err != nil {
			outcome["type"] = task.Type + SuffixRejected
			outcome["error"] = p.err.Error()
		} else {
			outcome["type"] = task.Type + SuffixFulfilled
			outcome["payload"] = p.value
		}

		if err := m.sched.Schedule(outcome); err != nil {
			m.cfg.logger.Error("task outcome dropped",
				"error", err,
				"task", task.Type,
				"request_id", p.RequestID,
			)
		}
	}()

	return p, nil
}
