package apps

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/roach88/flux/internal/codec"
	"github.com/roach88/flux/internal/store"
)

// Todos action types.
const (
	TypeAddTodo    = "todos/add"
	TypeToggleTodo = "todos/toggle"
	TypeRemoveTodo = "todos/remove"
	TypeClearDone  = "todos/clear_done"
	TypeSetFilter  = "filter/set"
)

// Visibility filters.
const (
	FilterAll    = "all"
	FilterActive = "active"
	FilterDone   = "done"
)

// Todo is one item of the todos slice.
type Todo struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// AddTodo appends an open item.
type AddTodo struct {
	Text string `json:"text"`
}

func (*AddTodo) ActionType() string { return TypeAddTodo }

// ToggleTodo flips the done flag of the item at Index.
type ToggleTodo struct {
	Index int `json:"index"`
}

func (*ToggleTodo) ActionType() string { return TypeToggleTodo }

// RemoveTodo deletes the item at Index.
type RemoveTodo struct {
	Index int `json:"index"`
}

func (*RemoveTodo) ActionType() string { return TypeRemoveTodo }

// ClearDone deletes every done item.
type ClearDone struct{}

func (*ClearDone) ActionType() string { return TypeClearDone }

// SetFilter changes the visibility filter.
type SetFilter struct {
	Filter string `json:"filter"`
}

func (*SetFilter) ActionType() string { return TypeSetFilter }

func todosRegistry() *codec.Registry {
	return codec.NewRegistry().
		MustRegister(TypeAddTodo, func() store.Action { return &AddTodo{} }).
		MustRegister(TypeToggleTodo, func() store.Action { return &ToggleTodo{} }).
		MustRegister(TypeRemoveTodo, func() store.Action { return &RemoveTodo{} }).
		MustRegister(TypeClearDone, func() store.Action { return &ClearDone{} }).
		MustRegister(TypeSetFilter, func() store.Action { return &SetFilter{} })
}

// TodoListReducer manages the "todos" slice. Out-of-range indexes are
// ignored and return the previous slice.
func TodoListReducer(reg *codec.Registry) store.Reducer {
	return func(state store.State, action store.Action) store.State {
		todos, ok := state.([]Todo)
		if !ok {
			todos = []Todo{}
		}

		switch action.ActionType() {
		case TypeAddTodo:
			if a, ok := as[*AddTodo](reg, action); ok {
				return append(slices.Clip(todos), Todo{Text: a.Text})
			}
		case TypeToggleTodo:
			if a, ok := as[*ToggleTodo](reg, action); ok && a.Index >= 0 && a.Index < len(todos) {
				next := slices.Clone(todos)
				next[a.Index].Done = !next[a.Index].Done
				return next
			}
		case TypeRemoveTodo:
			if a, ok := as[*RemoveTodo](reg, action); ok && a.Index >= 0 && a.Index < len(todos) {
				return slices.Delete(slices.Clone(todos), a.Index, a.Index+1)
			}
		case TypeClearDone:
			if !slices.ContainsFunc(todos, func(t Todo) bool { return t.Done }) {
				return todos
			}
			return slices.DeleteFunc(slices.Clone(todos), func(t Todo) bool { return t.Done })
		}
		return todos
	}
}

// FilterReducer manages the "filter" slice.
func FilterReducer(reg *codec.Registry) store.Reducer {
	return func(state store.State, action store.Action) store.State {
		filter, ok := state.(string)
		if !ok {
			filter = FilterAll
		}
		if action.ActionType() != TypeSetFilter {
			return filter
		}
		if a, ok := as[*SetFilter](reg, action); ok {
			return a.Filter
		}
		return filter
	}
}

// VisibleTodos applies the filter of a combined todos state.
func VisibleTodos(state store.State) []Todo {
	m, _ := state.(map[string]any)
	todos, _ := m["todos"].([]Todo)
	filter, _ := m["filter"].(string)

	switch filter {
	case FilterActive:
		return slices.DeleteFunc(slices.Clone(todos), func(t Todo) bool { return t.Done })
	case FilterDone:
		return slices.DeleteFunc(slices.Clone(todos), func(t Todo) bool { return !t.Done })
	default:
		return todos
	}
}

func decodeTodosState(data []byte) (store.State, error) {
	var raw struct {
		Todos  []Todo `json:"todos"`
		Filter string `json:"filter"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw.Todos == nil {
		raw.Todos = []Todo{}
	}
	if raw.Filter == "" {
		raw.Filter = FilterAll
	}
	return map[string]any{"todos": raw.Todos, "filter": raw.Filter}, nil
}

func newTodos() (*App, error) {
	sch, err := loadSchema("todos")
	if err != nil {
		return nil, err
	}
	reg := todosRegistry()
	root, err := store.Combine(map[string]store.Reducer{
		"todos":  TodoListReducer(reg),
		"filter": FilterReducer(reg),
	})
	if err != nil {
		return nil, fmt.Errorf("combine todos reducers: %w", err)
	}
	return &App{
		Name:        "todos",
		Description: "todo list with a visibility filter (combined slices)",
		Reducer:     root,
		Registry:    reg,
		Schema:      sch,
		DecodeState: decodeTodosState,
	}, nil
}
