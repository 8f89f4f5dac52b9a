package store

import (
	"fmt"
	"math/rand"
	"slices"
	"strconv"
)

// Combine merges slice reducers into one root reducer.
//
// The combined state is a map[string]any with exactly the keys of reducers.
// On every dispatch each slice reducer receives (state[key], action), in
// sorted key order. When every slice returns its input unchanged (Same) and
// the incoming state already had exactly these keys, the incoming state is
// returned as is, so callers can detect "nothing changed" with Same.
//
// Each slice reducer is probed at composition time with nil state, first
// with ActionInit and then with an unknown action type. A nil result from
// either probe is a ConfigurationError.
func Combine(reducers map[string]Reducer) (Reducer, error) {
	if len(reducers) == 0 {
		return nil, NewConfigurationError("combine requires at least one slice reducer")
	}

	keys := make([]string, 0, len(reducers))
	for key, r := range reducers {
		if r == nil {
			return nil, NewConfigurationError("slice reducer %q must not be nil", key)
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)

	// Copy so later mutation of the caller's map cannot change the shape.
	slice := make(map[string]Reducer, len(reducers))
	for _, key := range keys {
		slice[key] = reducers[key]
		if err := probe(key, slice[key]); err != nil {
			return nil, err
		}
	}

	return func(state State, action Action) State {
		prev, _ := state.(map[string]any)

		next := make(map[string]any, len(keys))
		changed := len(prev) != len(keys)
		for _, key := range keys {
			prevSlice, ok := prev[key]
			if !ok {
				changed = true
			}

			nextSlice := slice[key](prevSlice, action)
			if nextSlice == nil {
				panic(&Error{
					Code:       ErrCodeConfiguration,
					Message:    fmt.Sprintf("slice reducer %q returned nil; return the previous state to ignore an action", key),
					ActionType: action.ActionType(),
				})
			}

			next[key] = nextSlice
			if !Same(prevSlice, nextSlice) {
				changed = true
			}
		}

		if !changed {
			return state
		}
		return next
	}, nil
}

// probe checks that r returns a non-nil default for nil state.
func probe(key string, r Reducer) error {
	if r(nil, Record{"type": ActionInit}) == nil {
		return &Error{
			Code:       ErrCodeConfiguration,
			Message:    fmt.Sprintf("slice reducer %q returned nil during initialization; reducers must return a default for nil state", key),
			ActionType: ActionInit,
		}
	}

	unknown := ActionProbePrefix + "." + strconv.FormatUint(rand.Uint64(), 36)
	if r(nil, Record{"type": unknown}) == nil {
		return &Error{
			Code:       ErrCodeConfiguration,
			Message:    fmt.Sprintf("slice reducer %q returned nil for an unknown action; do not special-case %s", key, ActionInit),
			ActionType: unknown,
		}
	}
	return nil
}
