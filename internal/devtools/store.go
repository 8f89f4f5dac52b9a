package devtools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/flux/internal/codec"
	"github.com/roach88/flux/internal/store"
)

type config struct {
	maxAge       int
	observers    []Observer
	registry     *codec.Registry
	stateDecoder StateDecoder
	logger       *slog.Logger
}

// Option configures Instrument.
type Option func(*config)

// WithMaxAge bounds the staged history to n entries, including the init
// entry. Older actions are committed automatically. n must be at least 2;
// 0 means unbounded.
func WithMaxAge(n int) Option {
	return func(c *config) {
		c.maxAge = n
	}
}

// WithObserver adds an observer notified after every performed action.
func WithObserver(obs Observer) Option {
	return func(c *config) {
		if obs != nil {
			c.observers = append(c.observers, obs)
		}
	}
}

// WithRegistry sets the codec registry used by Import to rebuild typed
// actions. Without one, imported actions are store.Record values.
func WithRegistry(r *codec.Registry) Option {
	return func(c *config) {
		c.registry = r
	}
}

// WithStateDecoder sets the function Import uses to restore the exported
// committed state. Without one, Import keeps the current committed state.
func WithStateDecoder(fn StateDecoder) Option {
	return func(c *config) {
		c.stateDecoder = fn
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Handle gives access to the *Store an instrumented enhancer created.
// Other enhancers composed outside devtools may wrap the store, so the
// store returned by store.New is not necessarily a *Store.
type Handle struct {
	mu    sync.Mutex
	store *Store
}

// Store returns the most recently created devtools store, or nil.
func (h *Handle) Store() *Store {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.store
}

func (h *Handle) set(s *Store) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.store = s
}

// Instrument returns the devtools enhancer and a handle to the store it
// builds.
func Instrument(opts ...Option) (store.Enhancer, *Handle) {
	cfg := config{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	handle := &Handle{}
	enhancer := func(next store.Creator) store.Creator {
		return func(reducer store.Reducer, preloaded store.State) (store.Store, error) {
			if cfg.maxAge != 0 && cfg.maxAge < 2 {
				return nil, store.NewConfigurationError("devtools max age must be at least 2, got %d", cfg.maxAge)
			}
			if reducer == nil {
				return nil, store.NewConfigurationError("reducer must not be nil")
			}

			inner, err := next(lift(reducer, preloaded, cfg.maxAge), nil)
			if err != nil {
				return nil, err
			}

			s := &Store{
				inner:     inner,
				cfg:       cfg,
				preloaded: preloaded,
				observers: NewMultiObserver(cfg.observers...),
			}
			handle.set(s)
			return s, nil
		}
	}
	return enhancer, handle
}

// Store is an instrumented store. It implements store.Store for the
// application state and adds history controls.
type Store struct {
	inner     store.Store
	cfg       config
	preloaded store.State
	observers Observer
}

var _ store.Store = (*Store)(nil)

func (s *Store) history() *history {
	return s.inner.GetState().(*history)
}

// GetState returns the application state at the viewed history position.
func (s *Store) GetState() store.State {
	return s.history().state()
}

// Dispatch records action as a new history entry. Control values are
// forwarded as controls.
//
// While the view is travelled back, the new entry is appended at the tip
// and the view does not move.
func (s *Store) Dispatch(action any) (any, error) {
	a, err := store.ValidateAction(action)
	if err != nil {
		return nil, err
	}

	if c, ok := a.(Control); ok {
		if _, err := s.inner.Dispatch(c); err != nil {
			return nil, err
		}
		return a, nil
	}

	p := &perform{action: a}
	if _, err := s.inner.Dispatch(p); err != nil {
		return nil, err
	}
	s.observe(p)
	return a, nil
}

func (s *Store) observe(p *perform) {
	h := s.history()
	idx := h.indexOf(p.id)
	if idx < 0 {
		s.cfg.logger.Warn("performed action missing from history", "action", p.action.ActionType(), "id", p.id)
		return
	}
	s.observers.OnAction(context.Background(), Event{
		ID:     p.id,
		Index:  idx,
		Action: p.action,
		State:  h.computed[idx].State,
	})
}

// Subscribe registers a listener, notified after actions and controls.
func (s *Store) Subscribe(listener store.Listener) store.Unsubscribe {
	return s.inner.Subscribe(listener)
}

// ReplaceReducer installs reducer and recomputes the whole history with it.
// Subscribers are notified.
func (s *Store) ReplaceReducer(reducer store.Reducer) error {
	if reducer == nil {
		return store.NewConfigurationError("reducer must not be nil")
	}
	if err := s.inner.ReplaceReducer(lift(reducer, s.preloaded, s.cfg.maxAge)); err != nil {
		return err
	}
	_, err := s.inner.Dispatch(recompute{})
	return err
}

// Teardown releases the inner store's listeners.
func (s *Store) Teardown() {
	s.inner.Teardown()
}

// JumpTo views the state after history entry index without discarding
// anything.
func (s *Store) JumpTo(index int) error {
	if err := s.checkIndex(index, 0); err != nil {
		return err
	}
	return s.control(Control{Kind: KindJumpTo, Index: index})
}

// Toggle skips the action at index, or un-skips it if already skipped,
// and recomputes every later state.
func (s *Store) Toggle(index int) error {
	if err := s.checkIndex(index, 1); err != nil {
		return err
	}
	return s.control(Control{Kind: KindToggle, Index: index})
}

// Reset discards all history, returning to the state the store was
// created with.
func (s *Store) Reset() error { return s.control(Control{Kind: KindReset}) }

// Commit makes the viewed state the new committed state and discards the
// staged actions.
func (s *Store) Commit() error { return s.control(Control{Kind: KindCommit}) }

// Rollback discards the staged actions, returning to the committed state.
func (s *Store) Rollback() error { return s.control(Control{Kind: KindRollback}) }

// Sweep removes skipped actions from the history.
func (s *Store) Sweep() error { return s.control(Control{Kind: KindSweep}) }

func (s *Store) control(c Control) error {
	_, err := s.inner.Dispatch(c)
	return err
}

func (s *Store) checkIndex(index, lowest int) error {
	tip := s.history().tip()
	if index < lowest || index > tip {
		return fmt.Errorf("history index %d out of range [%d, %d]", index, lowest, tip)
	}
	return nil
}

// Entry is one position in the history.
type Entry struct {
	Index   int
	ID      int64
	Action  store.Action
	Skipped bool
	State   store.State
	Err     error
}

// History is a snapshot of the recorded history.
type History struct {
	Committed store.State
	Entries   []Entry
	Current   int
}

// History returns a snapshot of the history. Entry 0 is the init entry.
func (s *Store) History() History {
	h := s.history()
	entries := make([]Entry, len(h.staged))
	for i, id := range h.staged {
		entries[i] = Entry{
			Index:   i,
			ID:      id,
			Action:  h.actions[id],
			Skipped: h.skipped[id],
			State:   h.computed[i].State,
			Err:     h.computed[i].Err,
		}
	}
	return History{Committed: h.committed, Entries: entries, Current: h.current}
}
