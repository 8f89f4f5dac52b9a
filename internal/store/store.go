package store

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// State is the single value a store owns. nil means "not yet initialized";
// reducers return their default when they receive it.
type State = any

// Reducer computes the next state from the previous state and an action.
// Reducers must be total and pure: no I/O, no mutation of state, no dispatch.
type Reducer func(state State, action Action) State

// Store is the surface exposed to UI bindings, middleware and enhancers.
type Store interface {
	// GetState returns the current state reference.
	GetState() State

	// Dispatch runs action through the store and returns the value the
	// outermost stage produced (the action itself for a bare store).
	Dispatch(action any) (any, error)

	// Subscribe registers listener and returns its unsubscribe handle.
	Subscribe(listener Listener) Unsubscribe

	// ReplaceReducer swaps the root reducer; the next dispatch uses it.
	ReplaceReducer(reducer Reducer) error

	// Teardown removes every listener.
	Teardown()
}

// Creator builds a store from a reducer and optional preloaded state.
type Creator func(reducer Reducer, preloaded State) (Store, error)

// Option configures New.
type Option func(*config)

type config struct {
	preloaded   State
	enhancer    Enhancer
	hasEnhancer bool
	logger      *slog.Logger
}

// WithPreloadedState sets the state passed to the reducer with ActionInit.
func WithPreloadedState(state State) Option {
	return func(c *config) {
		c.preloaded = state
	}
}

// WithEnhancer delegates construction to enhancer(Create).
// Passing a nil enhancer makes New fail with a ConfigurationError.
func WithEnhancer(enhancer Enhancer) Option {
	return func(c *config) {
		c.enhancer = enhancer
		c.hasEnhancer = true
	}
}

// WithLogger sets the logger used for dispatch diagnostics.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// New creates a store.
//
// Without an enhancer the result is a bare store built by Create. With one,
// construction is delegated to enhancer(Create)(reducer, preloaded) and the
// enhancer decides which Store implementation is returned.
func New(reducer Reducer, opts ...Option) (Store, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	if reducer == nil {
		return nil, NewConfigurationError("root reducer must not be nil")
	}

	base := creator(cfg.logger)
	if !cfg.hasEnhancer {
		return base(reducer, cfg.preloaded)
	}
	if cfg.enhancer == nil {
		return nil, NewConfigurationError("enhancer must not be nil")
	}

	create := cfg.enhancer(base)
	if create == nil {
		return nil, NewConfigurationError("enhancer returned a nil creator")
	}
	return create(reducer, cfg.preloaded)
}

// Create is the bare Creator: a store with no enhancer, logging to
// slog.Default(). Enhancers receive it (or a wrapped version) as next.
func Create(reducer Reducer, preloaded State) (Store, error) {
	return creator(slog.Default())(reducer, preloaded)
}

func creator(logger *slog.Logger) Creator {
	return func(reducer Reducer, preloaded State) (Store, error) {
		if reducer == nil {
			return nil, NewConfigurationError("root reducer must not be nil")
		}

		s := &core{
			reducer: reducer,
			state:   preloaded,
			logger:  logger,
		}

		if _, err := s.Dispatch(Record{"type": ActionInit}); err != nil {
			return nil, err
		}
		return s, nil
	}
}

// core is the bare store.
//
// CRITICAL: dispatching is claimed with CompareAndSwap before the reducer
// runs and released only after every listener returned. Any Dispatch seen
// while it is held, from a reducer, a listener or another goroutine, fails
// with ReentrancyError.
//
// mu guards reducer, state and listeners. It is never held while user code
// (reducers, listeners) runs, so GetState and Subscribe may be called from
// inside them.
type core struct {
	mu          sync.RWMutex
	reducer     Reducer
	state       State
	listeners   listenerSet
	dispatching atomic.Bool
	seq         atomic.Int64
	logger      *slog.Logger
}

// GetState returns the current state. Inside a reducer this is the state
// before the in-flight dispatch.
func (s *core) GetState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch validates action, runs the reducer, installs the result and
// notifies listeners before returning.
//
// If the reducer panics the panic propagates to the caller, the previous
// state stays installed and the store remains usable.
func (s *core) Dispatch(action any) (any, error) {
	act, err := ValidateAction(action)
	if err != nil {
		return nil, err
	}

	actionType := act.ActionType()
	if !s.dispatching.CompareAndSwap(false, true) {
		s.logger.Warn("reentrant dispatch rejected", "action", actionType)
		return nil, NewReentrancyError(actionType)
	}
	defer s.dispatching.Store(false)

	s.mu.RLock()
	reducer, prev := s.reducer, s.state
	s.mu.RUnlock()

	next := reducer(prev, act)

	s.mu.Lock()
	s.state = next
	subs := s.listeners.snapshot()
	s.mu.Unlock()

	seq := s.seq.Add(1)
	s.logger.Debug("action dispatched",
		"action", actionType,
		"seq", seq,
		"changed", !Same(prev, next),
		"listeners", len(subs),
	)

	notify(subs)
	return action, nil
}

// Subscribe registers listener. Listeners added during a notification pass
// are first called on the next dispatch.
//
// Panics with a ConfigurationError if listener is nil.
func (s *core) Subscribe(listener Listener) Unsubscribe {
	if listener == nil {
		panic(NewConfigurationError("listener must not be nil"))
	}

	s.mu.Lock()
	sub := s.listeners.add(listener)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.listeners.remove(sub)
	}
}

// ReplaceReducer swaps the root reducer without notifying listeners.
func (s *core) ReplaceReducer(reducer Reducer) error {
	if reducer == nil {
		return NewConfigurationError("replacement reducer must not be nil")
	}

	s.mu.Lock()
	s.reducer = reducer
	s.mu.Unlock()

	s.logger.Debug("reducer replaced")
	return nil
}

// Teardown removes every listener. The store stays readable and
// dispatchable.
func (s *core) Teardown() {
	s.mu.Lock()
	n := s.listeners.clear()
	s.mu.Unlock()

	s.logger.Debug("store torn down", "listeners_removed", n)
}

// listenerCount is used by tests.
func (s *core) listenerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listeners.count()
}
