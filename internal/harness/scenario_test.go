package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: basic
app: counter
preloaded: {min: 2}
strict: true
max_age: 5
steps:
  - dispatch: {type: ADD, by: 3}
  - control: {kind: JUMP_TO, index: 0}
  - dispatch: {type: ADD}
    expect_error: INVALID_ACTION
assertions:
  - type: trace_count
    action: ADD
    count: 1
`))
	require.NoError(t, err)

	assert.Equal(t, "basic", s.Name)
	assert.True(t, s.Strict)
	assert.Equal(t, 5, s.MaxAge)
	assert.Equal(t, map[string]any{"min": 2}, s.Preloaded)
	require.Len(t, s.Steps, 3)
	assert.Equal(t, map[string]any{"type": "ADD", "by": 3}, s.Steps[0].Dispatch)
	assert.Equal(t, &ControlStep{Kind: "JUMP_TO"}, s.Steps[1].Control)
	assert.Equal(t, "INVALID_ACTION", s.Steps[2].ExpectError)
	require.Len(t, s.Assertions, 1)
	assert.Equal(t, 1, *s.Assertions[0].Count)
}

func TestParseScenarioErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: "name: x\napp: counter\nstep: []\n",
			want: "field step not found",
		},
		{
			name: "missing name",
			yaml: "app: counter\nsteps: [{dispatch: {type: UP}}]\n",
			want: "name is required",
		},
		{
			name: "unknown app",
			yaml: "name: x\napp: chess\nsteps: [{dispatch: {type: UP}}]\n",
			want: `unknown app "chess"`,
		},
		{
			name: "no steps",
			yaml: "name: x\napp: counter\n",
			want: "steps list is required",
		},
		{
			name: "empty step",
			yaml: "name: x\napp: counter\nsteps: [{expect_error: X}]\n",
			want: "dispatch or control is required",
		},
		{
			name: "both kinds",
			yaml: "name: x\napp: counter\nsteps: [{dispatch: {type: UP}, control: {kind: reset}}]\n",
			want: "mutually exclusive",
		},
		{
			name: "bad control",
			yaml: "name: x\napp: counter\nsteps: [{control: {kind: rewind}}]\n",
			want: `unknown control kind "rewind"`,
		},
		{
			name: "count missing",
			yaml: "name: x\napp: counter\nsteps: [{dispatch: {type: UP}}]\nassertions: [{type: notify_count}]\n",
			want: "notify_count requires count",
		},
		{
			name: "short order",
			yaml: "name: x\napp: counter\nsteps: [{dispatch: {type: UP}}]\nassertions: [{type: trace_order, actions: [UP]}]\n",
			want: "at least 2 actions",
		},
		{
			name: "unknown assertion",
			yaml: "name: x\napp: counter\nsteps: [{dispatch: {type: UP}}]\nassertions: [{type: vibes}]\n",
			want: `unknown assertion type "vibes"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadDir(t *testing.T) {
	scenarios, err := LoadDir(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"counter_up", "todos_time_travel"}, names)

	_, err = LoadDir(t.TempDir())
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yml"), []byte("name: [\n"), 0o644))
	_, err = LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yml")
}
