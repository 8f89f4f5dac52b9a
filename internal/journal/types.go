package journal

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/roach88/flux/internal/ir"
)

// ErrSessionNotFound is returned when a session ID has no record.
var ErrSessionNotFound = errors.New("session not found")

// Session is one recorded run of a store.
type Session struct {
	ID           string
	App          string
	InitialState json.RawMessage // canonical JSON
	InitialHash  string
	CreatedAt    time.Time
	EntryCount   int
}

// Entry is one performed action and the state it produced.
type Entry struct {
	SessionID  string
	Seq        int64
	ActionType string
	Action     ir.Object
	ActionHash string
	State      json.RawMessage // canonical JSON
	StateHash  string
}

// NewEntry builds an entry from a record and a state, computing the
// canonical forms and hashes.
func NewEntry(sessionID string, seq int64, action ir.Object, state any) (Entry, error) {
	actionHash, err := ir.ActionHash(action)
	if err != nil {
		return Entry{}, err
	}
	stateJSON, err := ir.MarshalCanonical(state)
	if err != nil {
		return Entry{}, err
	}
	stateHash, err := ir.StateHash(state)
	if err != nil {
		return Entry{}, err
	}

	actionType, _ := action["type"].(ir.String)
	return Entry{
		SessionID:  sessionID,
		Seq:        seq,
		ActionType: string(actionType),
		Action:     action,
		ActionHash: actionHash,
		State:      stateJSON,
		StateHash:  stateHash,
	}, nil
}
