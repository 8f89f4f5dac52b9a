package store

import (
	"fmt"
	"reflect"
)

// Reserved action types dispatched by the store itself.
const (
	// ActionInit is dispatched once when a store is created and used by
	// Combine to probe slice reducers.
	ActionInit = "@@INIT"

	// ActionProbePrefix prefixes the unknown action type Combine uses to make
	// sure slice reducers do not special-case ActionInit.
	ActionProbePrefix = "@@flux/PROBE_UNKNOWN_ACTION"
)

// Action is a change request tagged by a type discriminator.
//
// Applications usually define one struct per action type and switch on the
// concrete type in their reducers:
//
//	type Increment struct{ By int }
//
//	func (Increment) ActionType() string { return "counter/increment" }
//
// Record covers the untyped case.
type Action interface {
	ActionType() string
}

// Record is a plain structured action: a map with a mandatory "type" entry
// and arbitrary payload fields.
type Record map[string]any

// ActionType returns the "type" entry rendered as a string, or "" when the
// entry is absent, nil or not comparable.
func (r Record) ActionType() string {
	tag, ok := r["type"]
	if !ok || tag == nil {
		return ""
	}
	if s, ok := tag.(string); ok {
		return s
	}
	if !reflect.TypeOf(tag).Comparable() {
		return ""
	}
	return fmt.Sprint(tag)
}

// NewRecord builds a Record of the given type with payload fields.
// A "type" key inside payload is overwritten.
func NewRecord(actionType string, payload map[string]any) Record {
	r := make(Record, len(payload)+1)
	for k, v := range payload {
		r[k] = v
	}
	r["type"] = actionType
	return r
}

// ValidateAction checks that v is a structured action with a defined type.
//
// Accepted values are Action implementations with a non-empty type and
// map[string]any values whose "type" entry is non-nil and comparable. Plain
// maps are returned as Record. Everything else, including nil and typed nil
// pointers, fails with an InvalidActionError.
func ValidateAction(v any) (Action, error) {
	if v == nil {
		return nil, NewInvalidActionError(v, "actions must be non-nil structured records")
	}

	var act Action
	switch val := v.(type) {
	case Action:
		rv := reflect.ValueOf(val)
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil, NewInvalidActionError(v, "actions must not be nil pointers")
		}
		act = val
	case map[string]any:
		act = Record(val)
	default:
		return nil, NewInvalidActionError(v, fmt.Sprintf("actions must be structured records, got %T; use middleware for other values", v))
	}

	if act.ActionType() == "" {
		return nil, NewInvalidActionError(v, `actions must have a non-empty "type"`)
	}
	return act, nil
}
