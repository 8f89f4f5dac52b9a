package harness

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flux/internal/ir"
)

func mustParse(t *testing.T, src string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	return s
}

func TestRunCounter(t *testing.T) {
	s := mustParse(t, `
name: counter
app: counter
preloaded: {min: 10}
steps:
  - dispatch: {type: ADD, by: 5}
  - dispatch: {type: DOWN}
assertions:
  - type: final_state
    expect: {min: 14}
  - type: trace_contains
    action: ADD
    args: {by: 5}
`)
	result, err := Run(s)
	require.NoError(t, err)

	assert.True(t, result.Pass, result.Errors)
	assert.Equal(t, ir.Object{"min": ir.Int(14)}, result.FinalState)
	assert.Equal(t, 2, result.Notifications)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, ir.Object{"by": ir.Int(5)}, result.Trace[0].Args)
	assert.Nil(t, result.Trace[1].Args)
}

func TestRunReportsFailures(t *testing.T) {
	s := mustParse(t, `
name: failing
app: counter
steps:
  - dispatch: {type: UP}
    expect_error: INVALID_ACTION
  - dispatch: {type: ADD, by: nope}
assertions:
  - type: final_state
    path: min
    expect: 99
  - type: final_state
    path: max
    expect: 1
  - type: trace_count
    action: UP
    count: 2
  - type: trace_order
    actions: [ADD, UP]
  - type: notify_count
    count: 0
`)
	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 7)
	assert.Contains(t, result.Errors[0], `step 0: expected error "INVALID_ACTION", step succeeded`)
	assert.Contains(t, result.Errors[1], "step 1: unexpected error")
	assert.Contains(t, result.Errors[2], "min = 99")
	assert.Contains(t, result.Errors[3], `path "max" not found`)
	assert.Contains(t, result.Errors[4], "2 occurrences of UP")
	assert.Contains(t, result.Errors[5], "missing action: ADD")
	assert.Contains(t, result.Errors[6], "0 notifications")
}

func TestRunStrictSchema(t *testing.T) {
	s := mustParse(t, `
name: strict
app: counter
strict: true
steps:
  - dispatch: {type: SIDEWAYS}
    expect_error: INVALID_ACTION
  - dispatch: 42
    expect_error: structured records
  - dispatch: {text: no type}
    expect_error: INVALID_ACTION
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	assert.Equal(t, 0, result.Notifications)

	for _, event := range result.Trace {
		assert.Equal(t, "INVALID_ACTION", event.Error)
	}
}

func TestRunControlErrors(t *testing.T) {
	s := mustParse(t, `
name: controls
app: counter
max_age: 3
steps:
  - dispatch: {type: UP}
  - dispatch: {type: UP}
  - dispatch: {type: UP}
  - control: {kind: jump_to, index: 9}
    expect_error: out of range
  - control: {kind: commit}
  - dispatch: {type: UP}
  - control: {kind: reset}
assertions:
  - type: final_state
    path: min
    expect: 0
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	assert.Equal(t, "ERROR", result.Trace[3].Error)
	assert.Equal(t, "COMMIT", result.Trace[4].Action)
	assert.Equal(t, ir.Object{"min": ir.Int(3)}, result.Trace[4].State)
	assert.Equal(t, ir.Object{"min": ir.Int(4)}, result.Trace[5].State)
}

func TestRunBadPreloaded(t *testing.T) {
	s := mustParse(t, `
name: bad
app: counter
preloaded: {min: 1.5}
steps:
  - dispatch: {type: UP}
`)
	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preloaded state")
}

func TestRunLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Run(mustParse(t, "name: logs\napp: counter\nsteps: [{dispatch: {type: UP}}]\n"), WithLogger(logger))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "scenario step completed")
}

func TestMatchValue(t *testing.T) {
	actual := ir.Object{
		"todos": ir.Array{ir.Object{"text": ir.String("a"), "done": ir.Bool(true)}},
		"n":     ir.Int(1),
		"none":  ir.Null{},
	}

	assert.True(t, matchValue(actual, ir.Object{"n": ir.Int(1)}))
	assert.True(t, matchValue(actual, ir.Object{"todos": ir.Array{ir.Object{"text": ir.String("a")}}}))
	assert.True(t, matchValue(actual, ir.Object{"none": ir.Null{}}))
	assert.False(t, matchValue(actual, ir.Object{"todos": ir.Array{}}))
	assert.False(t, matchValue(actual, ir.Object{"n": ir.String("1")}))
	assert.False(t, matchValue(actual, ir.Object{"missing": ir.Int(1)}))
	assert.False(t, matchValue(ir.Int(1), ir.Object{}))
}
