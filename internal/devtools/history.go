package devtools

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/flux/internal/store"
)

// Computed is the application state after one history entry.
type Computed struct {
	State store.State
	// Err holds a reducer panic recovered while replaying this entry.
	Err error
}

// history is the lifted state. Values are never mutated once installed;
// every transition builds a new one.
type history struct {
	base      store.State // committed state at creation, restored by Reset
	committed store.State
	nextID    int64
	staged    []int64 // staged[0] is the init entry
	actions   map[int64]store.Action
	skipped   map[int64]bool
	computed  []Computed // parallel to staged
	current   int
}

func (h *history) clone() *history {
	return &history{
		base:      h.base,
		committed: h.committed,
		nextID:    h.nextID,
		staged:    slices.Clone(h.staged),
		actions:   maps.Clone(h.actions),
		skipped:   maps.Clone(h.skipped),
		computed:  slices.Clone(h.computed),
		current:   h.current,
	}
}

func (h *history) state() store.State {
	return h.computed[h.current].State
}

func (h *history) tip() int {
	return len(h.staged) - 1
}

// indexOf returns the staged position of entry id, or -1.
func (h *history) indexOf(id int64) int {
	return slices.Index(h.staged, id)
}

// restart discards staged actions and recomputes from committed.
func (h *history) restart(app store.Reducer, committed store.State) {
	initAction := h.actions[0]
	h.committed = committed
	h.staged = []int64{0}
	h.actions = map[int64]store.Action{0: initAction}
	h.skipped = map[int64]bool{}
	h.current = 0
	h.recompute(app, 0)
}

// recompute rebuilds computed states from position from onward.
func (h *history) recompute(app store.Reducer, from int) {
	h.computed = h.computed[:min(from, len(h.computed))]
	for i := from; i < len(h.staged); i++ {
		prev := h.committed
		if i > 0 {
			prev = h.computed[i-1].State
		}

		id := h.staged[i]
		if h.skipped[id] {
			h.computed = append(h.computed, Computed{State: prev})
			continue
		}
		h.computed = append(h.computed, replay(app, prev, h.actions[id]))
	}
}

// replay runs the reducer, capturing a panic as the entry's error.
func replay(app store.Reducer, prev store.State, action store.Action) (c Computed) {
	defer func() {
		if r := recover(); r != nil {
			c = Computed{State: prev, Err: fmt.Errorf("reducer panicked on %s: %v", action.ActionType(), r)}
		}
	}()
	return Computed{State: app(prev, action)}
}

// commitExcess folds the oldest n staged actions into the committed state.
func (h *history) commitExcess(n int) {
	if n <= 0 {
		return
	}
	for _, id := range h.staged[1 : n+1] {
		delete(h.actions, id)
		delete(h.skipped, id)
	}
	h.committed = h.computed[n].State
	h.staged = append([]int64{0}, h.staged[n+1:]...)
	h.computed = h.computed[n:]
	h.current = max(h.current-n, 0)
}

// lift returns the history reducer for app.
func lift(app store.Reducer, preloaded store.State, maxAge int) store.Reducer {
	return func(state store.State, action store.Action) store.State {
		h, _ := state.(*history)
		if h == nil {
			h = &history{
				base:      preloaded,
				committed: preloaded,
				nextID:    1,
				staged:    []int64{0},
				actions:   map[int64]store.Action{0: action},
				skipped:   map[int64]bool{},
			}
			// A panic while initializing propagates, as it would from the
			// plain store constructor.
			h.computed = []Computed{{State: app(preloaded, action)}}
			return h
		}

		switch a := action.(type) {
		case *perform:
			return performAction(h, app, a, maxAge)
		case Control:
			return control(h, app, a)
		case importHistory:
			next := a.state.clone()
			next.base = h.base
			next.actions[0] = h.actions[0]
			next.recompute(app, 0)
			return next
		case recompute:
			next := h.clone()
			next.recompute(app, 0)
			return next
		default:
			return performAction(h, app, &perform{action: action}, maxAge)
		}
	}
}

func performAction(h *history, app store.Reducer, p *perform, maxAge int) store.State {
	// Called outside replay: a panic propagates and the history is unchanged.
	nextState := app(h.computed[h.tip()].State, p.action)

	next := h.clone()
	id := next.nextID
	next.nextID++
	next.staged = append(next.staged, id)
	next.actions[id] = p.action
	next.computed = append(next.computed, Computed{State: nextState})
	if next.current == h.tip() {
		next.current = next.tip()
	}
	if maxAge > 0 && len(next.staged) > maxAge {
		next.commitExcess(len(next.staged) - maxAge)
	}

	p.id = id
	return next
}

func control(h *history, app store.Reducer, c Control) store.State {
	switch c.Kind {
	case KindJumpTo:
		if c.Index < 0 || c.Index > h.tip() || c.Index == h.current {
			return h
		}
		next := h.clone()
		next.current = c.Index
		return next

	case KindToggle:
		if c.Index < 1 || c.Index > h.tip() {
			return h
		}
		next := h.clone()
		id := next.staged[c.Index]
		if next.skipped[id] {
			delete(next.skipped, id)
		} else {
			next.skipped[id] = true
		}
		next.recompute(app, c.Index)
		return next

	case KindReset:
		next := h.clone()
		next.restart(app, h.base)
		return next

	case KindCommit:
		next := h.clone()
		next.restart(app, h.state())
		return next

	case KindRollback:
		next := h.clone()
		next.restart(app, h.committed)
		return next

	case KindSweep:
		if len(h.skipped) == 0 {
			return h
		}
		next := h.clone()
		kept := []int64{0}
		for i, id := range h.staged[1:] {
			if h.skipped[id] {
				delete(next.actions, id)
				if i+1 <= h.current {
					next.current--
				}
				continue
			}
			kept = append(kept, id)
		}
		next.staged = kept
		next.skipped = map[int64]bool{}
		next.current = max(next.current, 0)
		next.recompute(app, 0)
		return next

	default:
		return h
	}
}
