package devtools

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/flux/internal/codec"
	"github.com/roach88/flux/internal/ir"
	"github.com/roach88/flux/internal/store"
)

// ExportVersion is written to every export and checked on import.
const ExportVersion = 1

// StateDecoder rebuilds an application state from its canonical JSON.
type StateDecoder func(data []byte) (store.State, error)

// exported is the on-disk form of a history.
type exported struct {
	Version   int              `json:"version"`
	Committed json.RawMessage  `json:"committed"`
	Actions   []exportedAction `json:"actions"`
	Current   int              `json:"current"`
}

type exportedAction struct {
	Action  ir.Object `json:"action"`
	Skipped bool      `json:"skipped,omitempty"`
}

// Export serializes the committed state and the staged actions (without
// the init entry) as canonical JSON.
func (s *Store) Export() ([]byte, error) {
	h := s.history()

	committed, err := ir.MarshalCanonical(h.committed)
	if err != nil {
		return nil, fmt.Errorf("export committed state: %w", err)
	}

	out := exported{
		Version:   ExportVersion,
		Committed: committed,
		Actions:   make([]exportedAction, 0, len(h.staged)-1),
		Current:   h.current,
	}
	for _, id := range h.staged[1:] {
		obj, err := codec.Encode(h.actions[id])
		if err != nil {
			return nil, fmt.Errorf("export action %d: %w", id, err)
		}
		out.Actions = append(out.Actions, exportedAction{Action: obj, Skipped: h.skipped[id]})
	}

	return ir.MarshalCanonical(out)
}

// Import replaces the history with an export and recomputes every state.
// Subscribers are notified. Observers are not: imported actions were
// already performed once.
func (s *Store) Import(data []byte) error {
	var in exported
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	if in.Version != ExportVersion {
		return fmt.Errorf("import: unsupported version %d", in.Version)
	}

	current := s.history()
	committed := current.committed
	if s.cfg.stateDecoder != nil && len(in.Committed) > 0 {
		st, err := s.cfg.stateDecoder(in.Committed)
		if err != nil {
			return fmt.Errorf("import committed state: %w", err)
		}
		committed = st
	}

	h := &history{
		committed: committed,
		nextID:    current.nextID,
		staged:    []int64{0},
		actions:   map[int64]store.Action{},
		skipped:   map[int64]bool{},
	}
	for i, ea := range in.Actions {
		action, err := s.cfg.registry.Decode(ea.Action)
		if err != nil {
			return fmt.Errorf("import action %d: %w", i+1, err)
		}
		id := h.nextID
		h.nextID++
		h.staged = append(h.staged, id)
		h.actions[id] = action
		if ea.Skipped {
			h.skipped[id] = true
		}
	}
	if in.Current < 0 || in.Current >= len(h.staged) {
		h.current = len(h.staged) - 1
	} else {
		h.current = in.Current
	}

	_, err := s.inner.Dispatch(importHistory{state: h})
	return err
}
