package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceA handles INC_A; its state is a pointer so identity is observable.
type sliceA struct{ N int }

func reducerA(state State, action Action) State {
	s, ok := state.(*sliceA)
	if !ok {
		s = &sliceA{}
	}
	if action.ActionType() == "INC_A" {
		return &sliceA{N: s.N + 1}
	}
	return s
}

type sliceB struct{ Items []string }

func reducerB(state State, action Action) State {
	s, ok := state.(*sliceB)
	if !ok {
		return &sliceB{}
	}
	return s
}

func TestCombine_InitialShape(t *testing.T) {
	root, err := Combine(map[string]Reducer{"a": reducerA, "b": reducerB})
	require.NoError(t, err)

	s, err := New(root)
	require.NoError(t, err)

	state := s.GetState().(map[string]any)
	assert.Len(t, state, 2)
	assert.Equal(t, &sliceA{}, state["a"])
	assert.Equal(t, &sliceB{}, state["b"])
}

func TestCombine_ChangesOnlyHandlingSlice(t *testing.T) {
	root, err := Combine(map[string]Reducer{"a": reducerA, "b": reducerB})
	require.NoError(t, err)
	s, err := New(root)
	require.NoError(t, err)

	before := s.GetState().(map[string]any)

	_, err = s.Dispatch(Record{"type": "INC_A"})
	require.NoError(t, err)

	after := s.GetState().(map[string]any)
	assert.Equal(t, 1, after["a"].(*sliceA).N)
	assert.False(t, Same(before["a"], after["a"]))
	assert.True(t, Same(before["b"], after["b"]), "state.b must stay reference-identical")
	assert.False(t, Same(before, after))
}

func TestCombine_NoOpReturnsSameReference(t *testing.T) {
	root, err := Combine(map[string]Reducer{"a": reducerA, "b": reducerB})
	require.NoError(t, err)
	s, err := New(root)
	require.NoError(t, err)

	before := s.GetState()
	_, err = s.Dispatch(Record{"type": "SOMETHING_ELSE"})
	require.NoError(t, err)

	assert.True(t, Same(before, s.GetState()))
}

func TestCombine_Deterministic(t *testing.T) {
	root, err := Combine(map[string]Reducer{"a": reducerA, "b": reducerB})
	require.NoError(t, err)

	start := map[string]any{"a": &sliceA{N: 3}, "b": &sliceB{}}
	action := Record{"type": "INC_A"}

	first := root(start, action).(map[string]any)
	second := root(start, action).(map[string]any)
	assert.Equal(t, first, second)
	assert.Equal(t, 3, start["a"].(*sliceA).N, "input state is not mutated")
}

func TestCombine_DropsUnknownKeys(t *testing.T) {
	root, err := Combine(map[string]Reducer{"a": reducerA})
	require.NoError(t, err)

	a := &sliceA{}
	start := map[string]any{"a": a, "stale": 1}
	next := root(start, Record{"type": "NOOP"}).(map[string]any)

	assert.False(t, Same(start, next))
	assert.Equal(t, map[string]any{"a": a}, next)
}

func TestCombine_FillsMissingKeys(t *testing.T) {
	root, err := Combine(map[string]Reducer{"a": reducerA, "b": reducerB})
	require.NoError(t, err)

	start := map[string]any{"a": &sliceA{}}
	next := root(start, Record{"type": "NOOP"}).(map[string]any)

	assert.Len(t, next, 2)
	assert.Equal(t, &sliceB{}, next["b"])
}

func TestCombine_ConfigurationErrors(t *testing.T) {
	returnsNil := func(state State, action Action) State { return state }
	initOnly := func(state State, action Action) State {
		if action.ActionType() == ActionInit {
			return 0
		}
		return state
	}

	tests := []struct {
		name     string
		reducers map[string]Reducer
	}{
		{"empty mapping", map[string]Reducer{}},
		{"nil reducer", map[string]Reducer{"a": nil}},
		{"nil default", map[string]Reducer{"a": reducerA, "bad": returnsNil}},
		{"special-cased init", map[string]Reducer{"bad": initOnly}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Combine(tt.reducers)
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err))
		})
	}
}

func TestCombine_SliceReturningNilPanics(t *testing.T) {
	root, err := Combine(map[string]Reducer{
		"a": func(state State, action Action) State {
			if action.ActionType() == "WIPE" {
				return nil
			}
			if state == nil {
				return 0
			}
			return state
		},
	})
	require.NoError(t, err)

	s, err := New(root)
	require.NoError(t, err)
	before := s.GetState()

	assert.Panics(t, func() { _, _ = s.Dispatch(Record{"type": "WIPE"}) })
	assert.True(t, Same(before, s.GetState()))
}

func TestCombine_Nested(t *testing.T) {
	inner, err := Combine(map[string]Reducer{"a": reducerA})
	require.NoError(t, err)
	root, err := Combine(map[string]Reducer{"inner": inner, "b": reducerB})
	require.NoError(t, err)

	s, err := New(root)
	require.NoError(t, err)
	before := s.GetState()

	_, err = s.Dispatch(Record{"type": "NOOP"})
	require.NoError(t, err)
	assert.True(t, Same(before, s.GetState()))

	_, err = s.Dispatch(Record{"type": "INC_A"})
	require.NoError(t, err)
	state := s.GetState().(map[string]any)
	assert.Equal(t, 1, state["inner"].(map[string]any)["a"].(*sliceA).N)
}
