package harness

import (
	"github.com/roach88/flux/internal/ir"
)

// Trace event kinds.
const (
	KindDispatch = "dispatch"
	KindControl  = "control"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq  int64
	Kind string

	// Action is the action type for dispatches and the control label
	// ("JUMP_TO(1)") for controls.
	Action string

	// Args is the action payload without "type". Nil for controls.
	Args ir.Object

	// Error is the error code when the step failed, empty otherwise.
	Error string

	// State is the canonical state after the step.
	State ir.Value
}

// succeeded reports whether the event is a dispatch the store accepted.
func (e TraceEvent) succeeded() bool {
	return e.Kind == KindDispatch && e.Error == ""
}

func (e TraceEvent) object() ir.Object {
	obj := ir.Object{
		"seq":    ir.Int(e.Seq),
		"kind":   ir.String(e.Kind),
		"action": ir.String(e.Action),
		"state":  orNull(e.State),
	}
	if len(e.Args) > 0 {
		obj["args"] = e.Args
	}
	if e.Error != "" {
		obj["error"] = ir.String(e.Error)
	}
	return obj
}

// Result is the outcome of a scenario run.
type Result struct {
	Scenario string

	// Pass is true when every step behaved as expected and every assertion
	// held.
	Pass bool

	Trace  []TraceEvent
	Errors []string

	// FinalState is the canonical state after the last step.
	FinalState ir.Value

	// Notifications counts store listener calls.
	Notifications int
}

// NewResult returns a passing result with an empty trace.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario: scenario,
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Snapshot returns the canonical JSON of the scenario name, the trace, the
// final state and the notification count. Golden files hold this form.
func (r *Result) Snapshot() ([]byte, error) {
	trace := make(ir.Array, len(r.Trace))
	for i, event := range r.Trace {
		trace[i] = event.object()
	}
	return ir.MarshalCanonical(ir.Object{
		"scenario":      ir.String(r.Scenario),
		"trace":         trace,
		"final_state":   orNull(r.FinalState),
		"notifications": ir.Int(r.Notifications),
	})
}

func orNull(v ir.Value) ir.Value {
	if v == nil {
		return ir.Null{}
	}
	return v
}
