package devtools

import (
	"fmt"

	"github.com/roach88/flux/internal/store"
)

// ControlKind names a history control.
type ControlKind string

const (
	KindJumpTo   ControlKind = "JUMP_TO"
	KindToggle   ControlKind = "TOGGLE"
	KindReset    ControlKind = "RESET"
	KindCommit   ControlKind = "COMMIT"
	KindRollback ControlKind = "ROLLBACK"
	KindSweep    ControlKind = "SWEEP"
)

// ActionPrefix prefixes the type of every action the history reducer
// handles itself.
const ActionPrefix = "@@devtools/"

// Control is a history control action. Dispatching one through a *Store
// (or through middleware in front of it) is equivalent to calling the
// matching method, minus the index validation.
type Control struct {
	Kind  ControlKind
	Index int
}

func (c Control) ActionType() string { return ActionPrefix + string(c.Kind) }

func (c Control) String() string {
	switch c.Kind {
	case KindJumpTo, KindToggle:
		return fmt.Sprintf("%s(%d)", c.Kind, c.Index)
	default:
		return string(c.Kind)
	}
}

// perform wraps an application action. The history reducer stamps id with
// the entry it created so Dispatch can find it for observers.
type perform struct {
	action store.Action
	id     int64
}

func (*perform) ActionType() string { return ActionPrefix + "PERFORM_ACTION" }

type importHistory struct {
	state *history
}

func (importHistory) ActionType() string { return ActionPrefix + "IMPORT_STATE" }

type recompute struct{}

func (recompute) ActionType() string { return ActionPrefix + "RECOMPUTE" }
