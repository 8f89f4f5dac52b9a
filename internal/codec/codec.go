// Package codec converts actions to and from their canonical record form.
//
// Typed actions are Go structs whose exported fields carry the payload. A
// Registry maps action types to factories so that records read back from
// the journal, a devtools export or a scenario file decode into the same
// typed values the application dispatches. Types without a factory decode
// as store.Record.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/flux/internal/ir"
	"github.com/roach88/flux/internal/store"
)

// TypeField is the record key holding the action type.
const TypeField = "type"

// ErrMalformed is returned for records that cannot be decoded at all.
var ErrMalformed = errors.New("malformed action record")

// Factory returns a fresh, zero-valued typed action ready to be decoded
// into. It must return a pointer.
type Factory func() store.Action

// Registry maps action types to factories. The zero value is not usable;
// a nil *Registry decodes everything as store.Record.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register associates actionType with factory. Registering the same type
// twice is an error.
func (r *Registry) Register(actionType string, factory Factory) error {
	if actionType == "" {
		return fmt.Errorf("register: empty action type")
	}
	if factory == nil {
		return fmt.Errorf("register %q: nil factory", actionType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[actionType]; exists {
		return fmt.Errorf("register %q: already registered", actionType)
	}
	r.factories[actionType] = factory
	return nil
}

// MustRegister is like Register but panics on error. Intended for package
// initialization.
func (r *Registry) MustRegister(actionType string, factory Factory) *Registry {
	if err := r.Register(actionType, factory); err != nil {
		panic(err)
	}
	return r
}

// Types returns the registered action types in sorted order.
func (r *Registry) Types() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

func (r *Registry) lookup(actionType string) (Factory, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[actionType]
	return f, ok
}

// Encode converts an action to its record form. The "type" key always
// holds action.ActionType(), whether or not the Go value has such a field.
func Encode(action store.Action) (ir.Object, error) {
	if action == nil {
		return nil, fmt.Errorf("encode: %w: nil action", ErrMalformed)
	}

	v, err := ir.FromGo(action)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", action.ActionType(), err)
	}

	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("encode %s: %w: payload encodes as %T, want object",
			action.ActionType(), ErrMalformed, v)
	}
	obj[TypeField] = ir.String(action.ActionType())
	return obj, nil
}

// Decode rebuilds an action from its record form.
func (r *Registry) Decode(obj ir.Object) (store.Action, error) {
	raw, ok := obj[TypeField]
	if !ok {
		return nil, fmt.Errorf("decode: %w: missing %q", ErrMalformed, TypeField)
	}
	actionType, ok := raw.(ir.String)
	if !ok || actionType == "" {
		return nil, fmt.Errorf("decode: %w: %q must be a non-empty string", ErrMalformed, TypeField)
	}

	factory, ok := r.lookup(string(actionType))
	if !ok {
		rec, _ := ir.ToGo(obj).(map[string]any)
		return store.Record(rec), nil
	}

	action := factory()
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", actionType, err)
	}
	if err := json.Unmarshal(data, action); err != nil {
		return nil, fmt.Errorf("decode %s: %w", actionType, err)
	}
	if got := action.ActionType(); got != string(actionType) {
		return nil, fmt.Errorf("decode %s: factory produced action of type %q", actionType, got)
	}
	return action, nil
}

// DecodeJSON parses data as a single JSON record and decodes it.
func (r *Registry) DecodeJSON(data []byte) (store.Action, error) {
	v, err := ir.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("decode: %w: expected object, got %T", ErrMalformed, v)
	}
	return r.Decode(obj)
}

// EncodeJSON returns the canonical JSON of the action's record form.
func EncodeJSON(action store.Action) ([]byte, error) {
	obj, err := Encode(action)
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(obj)
}
