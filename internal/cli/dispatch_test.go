package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flux/internal/ir"
)

func TestDispatchText(t *testing.T) {
	stdout, _, err := execute(t, nil, "dispatch", "--app", "counter",
		`{"type":"UP"}`, `{"type":"ADD","by":2}`)
	require.NoError(t, err)

	assert.Contains(t, stdout, "App: counter")
	assert.Contains(t, stdout, "✓ [1] UP")
	assert.Contains(t, stdout, "✓ [2] ADD")
	assert.Contains(t, stdout, `Final state: {"min":3}`)
	assert.Contains(t, stdout, "State hash: "+ir.MustStateHash(ir.Object{"min": ir.Int(3)}))
}

func TestDispatchJSON(t *testing.T) {
	stdout, _, err := execute(t, nil, "--format", "json", "dispatch", "--app", "todos",
		`{"type":"todos/add","text":"write"}`,
		`{"type":"todos/toggle","index":0}`,
		`{"type":"filter/set","filter":"done"}`)
	require.NoError(t, err)

	var result DispatchResult
	resp := decodeResponse(t, stdout, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "todos", result.App)
	assert.Len(t, result.Actions, 3)
	assert.Zero(t, result.Rejected)
	assert.JSONEq(t, `{"filter":"done","todos":[{"done":true,"text":"write"}]}`, string(result.FinalState))
}

func TestDispatchRejectedActionExitsOne(t *testing.T) {
	stdout, _, err := execute(t, nil, "--format", "json", "dispatch", "--app", "counter",
		`{"type":"UP"}`, `{"type":"ADD","by":"two"}`, `{"type":"UP"}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result DispatchResult
	resp := decodeResponse(t, stdout, &result)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, CodeRejected, resp.Error.Code)
	assert.Equal(t, 1, result.Rejected)
	require.Len(t, result.Actions, 3)
	assert.NotEmpty(t, result.Actions[1].Error)
	assert.JSONEq(t, `{"min":2}`, string(result.FinalState))
}

func TestDispatchStrictRejectsUndeclaredTypes(t *testing.T) {
	_, _, err := execute(t, nil, "dispatch", "--app", "counter", `{"type":"RESET"}`)
	require.NoError(t, err)

	_, _, err = execute(t, nil, "dispatch", "--app", "counter", "--strict", `{"type":"RESET"}`)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestDispatchPreloaded(t *testing.T) {
	stdout, _, err := execute(t, nil, "dispatch", "--app", "counter",
		"--preloaded", `{"min":10}`, `{"type":"DOWN"}`)
	require.NoError(t, err)
	assert.Contains(t, stdout, `Final state: {"min":9}`)
}

func TestDispatchCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown app", []string{"dispatch", "--app", "nope", `{"type":"UP"}`}, "unknown app"},
		{"no actions", []string{"dispatch", "--app", "counter"}, "no actions given"},
		{"bad json", []string{"dispatch", "--app", "counter", `{"type":`}, "failed to read actions"},
		{"bad preloaded", []string{"dispatch", "--app", "counter", "--preloaded", `{"min":1.5}`, `{"type":"UP"}`}, "preloaded state"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, nil, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDispatchExportImport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	_, _, err := execute(t, nil, "dispatch", "--app", "counter", "--export", path,
		`{"type":"UP"}`, `{"type":"UP"}`)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"UP"`)

	stdout, _, err := execute(t, nil, "dispatch", "--app", "counter", "--import", path, `{"type":"ADD","by":5}`)
	require.NoError(t, err)
	assert.Contains(t, stdout, `Final state: {"min":7}`)

	stdout, _, err = execute(t, nil, "dispatch", "--app", "counter", "--import", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, `Final state: {"min":2}`)
}

func TestDispatchRecordsJournal(t *testing.T) {
	db := filepath.Join(t.TempDir(), "flux.db")

	stdout, _, err := execute(t, fixedOptions("session-1"), "--format", "json",
		"dispatch", "--app", "counter", "--db", db,
		`{"type":"UP"}`, `{"type":"ADD","by":"x"}`, `{"type":"ADD","by":4}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result DispatchResult
	decodeResponse(t, stdout, &result)
	assert.Equal(t, "session-1", result.Session)

	j, err := openJournal(db)
	require.NoError(t, err)
	defer j.Close()

	sess, err := j.GetSession(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, "counter", sess.App)
	assert.Equal(t, 2, sess.EntryCount, "rejected actions are not recorded")

	entries, err := j.ReadEntries(context.Background(), "session-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, result.StateHash, entries[1].StateHash)
}
