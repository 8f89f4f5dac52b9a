// Package harness runs YAML scenarios against the example apps and checks
// their outcome.
//
// A scenario names an app, an optional preloaded state, a list of steps and
// a list of assertions:
//
//	name: counter_up
//	description: three UP actions from {min: 0}
//	app: counter
//	preloaded: {min: 0}
//	steps:
//	  - dispatch: {type: UP}
//	  - dispatch: {type: ADD, by: "x"}
//	    expect_error: INVALID_ACTION
//	  - control: {kind: jump_to, index: 1}
//	assertions:
//	  - type: final_state
//	    path: min
//	    expect: 1
//
// Steps run through a fully enhanced store: panic recovery, logging, schema
// validation and devtools. Control steps drive the devtools history. Each
// step appends one event to the trace, stamped with a deterministic
// sequence number and the state after the step. The trace serializes to
// canonical JSON, which golden tests compare byte for byte.
//
// Supported assertions: trace_contains, trace_order, trace_count,
// final_state and notify_count.
package harness
