package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/flux/internal/ir"
)

// AssertionError is returned when an assertion fails. It carries the trace
// to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			status := "ok"
			if event.Error != "" {
				status = event.Error
			}
			fmt.Fprintf(&buf, "  [%d] %s %s %s %s\n", event.Seq, event.Kind, event.Action, render(event.Args), status)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns one
// message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertFinalState:
			err = assertFinalState(result, a)
		case AssertNotifyCount:
			err = assertNotifyCount(result, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// assertTraceContains looks for an accepted dispatch of the action whose
// payload contains the expected args.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	want, err := toObject(a.Args)
	if err != nil {
		return fmt.Errorf("trace_contains args: %w", err)
	}

	for _, event := range trace {
		if event.succeeded() && event.Action == a.Action && matchValue(orEmpty(event.Args), want) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with args %s", a.Action, render(want)),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first accepted dispatch of each action
// appears in the listed order. Other actions may come in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if event.succeeded() && positions[event.Action] == 0 {
			positions[event.Action] = i + 1
		}
	}

	for _, action := range a.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", a.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Actions); i++ {
		prev, curr := a.Actions[i-1], a.Actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", a.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.succeeded() && event.Action == a.Action {
			count++
		}
	}
	if count != *a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", *a.Count, a.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

func assertNotifyCount(result *Result, a Assertion) error {
	if result.Notifications != *a.Count {
		return &AssertionError{
			Type:     AssertNotifyCount,
			Expected: fmt.Sprintf("%d notifications", *a.Count),
			Actual:   fmt.Sprintf("%d notifications", result.Notifications),
		}
	}
	return nil
}

// assertFinalState compares the value at the assertion path with the
// expected value. Objects match as subsets.
func assertFinalState(result *Result, a Assertion) error {
	want, err := ir.FromGo(a.Expect)
	if err != nil {
		return fmt.Errorf("final_state expect: %w", err)
	}

	actual := result.FinalState
	where := "state"
	if a.Path != "" {
		where = a.Path
		obj, _ := actual.(ir.Object)
		v, ok := obj.Get(a.Path)
		if !ok {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s = %s", a.Path, render(want)),
				Actual:   fmt.Sprintf("path %q not found in %s", a.Path, render(actual)),
			}
		}
		actual = v
	}

	if !matchValue(actual, want) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s = %s", where, render(want)),
			Actual:   fmt.Sprintf("%s = %s", where, render(actual)),
		}
	}
	return nil
}

// matchValue reports whether actual matches expected. Objects match when
// every expected key matches; arrays need equal length and matching
// elements; scalars must be equal.
func matchValue(actual, expected ir.Value) bool {
	switch exp := expected.(type) {
	case ir.Object:
		act, ok := actual.(ir.Object)
		if !ok {
			return false
		}
		for k, ev := range exp {
			av, ok := act[k]
			if !ok || !matchValue(av, ev) {
				return false
			}
		}
		return true
	case ir.Array:
		act, ok := actual.(ir.Array)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !matchValue(act[i], exp[i]) {
				return false
			}
		}
		return true
	case nil, ir.Null:
		_, isNull := actual.(ir.Null)
		return actual == nil || isNull
	default:
		return actual == expected
	}
}

func toObject(m map[string]any) (ir.Object, error) {
	if len(m) == 0 {
		return ir.Object{}, nil
	}
	v, err := ir.FromGo(m)
	if err != nil {
		return nil, err
	}
	return v.(ir.Object), nil
}

func orEmpty(obj ir.Object) ir.Object {
	if obj == nil {
		return ir.Object{}
	}
	return obj
}

func render(v ir.Value) string {
	if v == nil {
		return "{}"
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
