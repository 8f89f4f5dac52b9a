package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/flux/internal/ir"
)

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// GetSession returns the session with the given ID.
// Returns ErrSessionNotFound if it does not exist.
func (j *Journal) GetSession(ctx context.Context, id string) (Session, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT s.id, s.app, s.initial_state, s.initial_hash, s.created_at,
		       (SELECT COUNT(*) FROM entries e WHERE e.session_id = s.id)
		FROM sessions s
		WHERE s.id = ?
	`, id)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("get session %s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return sess, nil
}

// ListSessions returns all sessions ordered by ID (creation order for
// UUIDv7 IDs). Returns an empty slice (not nil) if there are none.
func (j *Journal) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT s.id, s.app, s.initial_state, s.initial_hash, s.created_at,
		       (SELECT COUNT(*) FROM entries e WHERE e.session_id = s.id)
		FROM sessions s
		ORDER BY s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// ReadEntries returns a session's entries ordered by seq.
// Returns an empty slice (not nil) if the session has no entries.
func (j *Journal) ReadEntries(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT session_id, seq, action_type, action, action_hash, state, state_hash
		FROM entries
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	return entries, nil
}

func scanSession(s scanner) (Session, error) {
	var (
		sess      Session
		initial   string
		createdAt string
	)
	if err := s.Scan(&sess.ID, &sess.App, &initial, &sess.InitialHash, &createdAt, &sess.EntryCount); err != nil {
		return Session{}, err
	}

	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Session{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	sess.CreatedAt = t
	sess.InitialState = json.RawMessage(initial)
	return sess, nil
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e      Entry
		action string
		state  string
	)
	if err := s.Scan(&e.SessionID, &e.Seq, &e.ActionType, &action, &e.ActionHash, &state, &e.StateHash); err != nil {
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}

	v, err := ir.Parse([]byte(action))
	if err != nil {
		return Entry{}, fmt.Errorf("parse action at seq %d: %w", e.Seq, err)
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return Entry{}, fmt.Errorf("parse action at seq %d: expected object, got %T", e.Seq, v)
	}
	e.Action = obj
	e.State = json.RawMessage(state)
	return e, nil
}
