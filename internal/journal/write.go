package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/flux/internal/ir"
)

// BeginSession records a new session starting from initial.
func (j *Journal) BeginSession(ctx context.Context, id, app string, initial any, now time.Time) (Session, error) {
	stateJSON, err := ir.MarshalCanonical(initial)
	if err != nil {
		return Session{}, fmt.Errorf("begin session: %w", err)
	}
	stateHash, err := ir.StateHash(initial)
	if err != nil {
		return Session{}, fmt.Errorf("begin session: %w", err)
	}

	sess := Session{
		ID:           id,
		App:          app,
		InitialState: stateJSON,
		InitialHash:  stateHash,
		CreatedAt:    now.UTC().Truncate(time.Second),
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO sessions (id, app, initial_state, initial_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		sess.ID,
		sess.App,
		string(sess.InitialState),
		sess.InitialHash,
		sess.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return Session{}, fmt.Errorf("begin session: %w", err)
	}

	return sess, nil
}

// WriteEntry inserts an entry.
// Uses ON CONFLICT(session_id, seq) DO NOTHING for idempotency - writing
// the same entry twice is silently ignored.
//
// Note: The session must exist (foreign key constraint).
func (j *Journal) WriteEntry(ctx context.Context, e Entry) error {
	actionJSON, err := ir.MarshalCanonical(e.Action)
	if err != nil {
		return fmt.Errorf("write entry: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO entries
		(session_id, seq, action_type, action, action_hash, state, state_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`,
		e.SessionID,
		e.Seq,
		e.ActionType,
		string(actionJSON),
		e.ActionHash,
		string(e.State),
		e.StateHash,
	)
	if err != nil {
		return fmt.Errorf("write entry: %w", err)
	}

	return nil
}
