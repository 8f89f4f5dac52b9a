package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/flux/internal/codec"
	"github.com/roach88/flux/internal/devtools"
)

// Recorder writes every performed action of an instrumented store to a
// journal session. Register it with devtools.WithObserver, then call Begin
// once the store exists to record its initial state.
//
// A failed write is logged and remembered; the store keeps running. Check
// Err when the session ends.
type Recorder struct {
	journal *Journal
	logger  *slog.Logger

	mu      sync.Mutex
	session *Session
	err     error
	written int
}

var errNotBegun = errors.New("recorder has no session; call Begin first")

var _ devtools.Observer = (*Recorder)(nil)

// NewRecorder returns a recorder writing to j.
func NewRecorder(j *Journal, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{journal: j, logger: logger}
}

// Begin starts the session actions will be recorded into.
func (r *Recorder) Begin(ctx context.Context, id, app string, initial any, now time.Time) (Session, error) {
	sess, err := r.journal.BeginSession(ctx, id, app, initial, now)
	if err != nil {
		return Session{}, err
	}

	r.mu.Lock()
	r.session = &sess
	r.mu.Unlock()

	r.logger.Debug("journal session started", "session", sess.ID, "app", app)
	return sess, nil
}

// OnAction implements devtools.Observer.
func (r *Recorder) OnAction(ctx context.Context, event devtools.Event) {
	if err := r.record(ctx, event); err != nil {
		r.logger.Error("journal write failed",
			"error", err,
			"seq", event.ID,
			"action", event.Action.ActionType(),
		)
		r.mu.Lock()
		if r.err == nil {
			r.err = err
		}
		r.mu.Unlock()
		return
	}

	r.mu.Lock()
	r.written++
	r.mu.Unlock()
}

func (r *Recorder) record(ctx context.Context, event devtools.Event) error {
	r.mu.Lock()
	sess := r.session
	r.mu.Unlock()
	if sess == nil {
		return errNotBegun
	}

	obj, err := codec.Encode(event.Action)
	if err != nil {
		return fmt.Errorf("record seq %d: %w", event.ID, err)
	}
	entry, err := NewEntry(sess.ID, event.ID, obj, event.State)
	if err != nil {
		return fmt.Errorf("record seq %d: %w", event.ID, err)
	}
	return r.journal.WriteEntry(ctx, entry)
}

// Session returns the session being recorded, if Begin was called.
func (r *Recorder) Session() (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return Session{}, false
	}
	return *r.session, true
}

// Written returns the number of entries written so far.
func (r *Recorder) Written() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Err returns the first write failure, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
