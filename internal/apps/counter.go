package apps

import (
	"encoding/json"

	"github.com/roach88/flux/internal/codec"
	"github.com/roach88/flux/internal/store"
)

// Counter action types.
const (
	TypeUp   = "UP"
	TypeDown = "DOWN"
	TypeAdd  = "ADD"
)

// CounterState is the counter app state.
type CounterState struct {
	Min int64 `json:"min"`
}

// Up increments the counter.
type Up struct{}

func (*Up) ActionType() string { return TypeUp }

// Down decrements the counter.
type Down struct{}

func (*Down) ActionType() string { return TypeDown }

// Add adds By to the counter.
type Add struct {
	By int64 `json:"by"`
}

func (*Add) ActionType() string { return TypeAdd }

func counterRegistry() *codec.Registry {
	return codec.NewRegistry().
		MustRegister(TypeUp, func() store.Action { return &Up{} }).
		MustRegister(TypeDown, func() store.Action { return &Down{} }).
		MustRegister(TypeAdd, func() store.Action { return &Add{} })
}

// CounterReducer returns the next counter state.
func CounterReducer(reg *codec.Registry) store.Reducer {
	return func(state store.State, action store.Action) store.State {
		s, _ := state.(CounterState)

		switch action.ActionType() {
		case TypeUp:
			return CounterState{Min: s.Min + 1}
		case TypeDown:
			return CounterState{Min: s.Min - 1}
		case TypeAdd:
			if add, ok := as[*Add](reg, action); ok {
				return CounterState{Min: s.Min + add.By}
			}
		}
		return s
	}
}

func decodeCounterState(data []byte) (store.State, error) {
	var s CounterState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return s, nil
}

func newCounter() (*App, error) {
	sch, err := loadSchema("counter")
	if err != nil {
		return nil, err
	}
	reg := counterRegistry()
	return &App{
		Name:        "counter",
		Description: "integer counter with UP, DOWN and ADD",
		Reducer:     CounterReducer(reg),
		Registry:    reg,
		Schema:      sch,
		DecodeState: decodeCounterState,
	}, nil
}
