package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flux/internal/ir"
)

func TestReadRecordsFromArgsAndStdin(t *testing.T) {
	in := strings.NewReader(`
# comment
{"type":"ADD","by":2}

{"type":"DOWN"}
`)
	records, err := readRecords([]string{`{"type":"UP"}`}, "-", in)
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, "UP", recordType(records[0]))
	assert.Equal(t, ir.Int(2), records[1]["by"])
	assert.Equal(t, "DOWN", recordType(records[2]))
}

func TestReadRecordsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"type\":\"UP\"}\n[1]\n"), 0o644))

	_, err := readRecords(nil, path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "actions.jsonl:2")
	assert.Contains(t, err.Error(), "must be a JSON object")
}

func TestParseRecordRejectsFloats(t *testing.T) {
	_, err := parseRecord(`{"type":"ADD","by":1.5}`)
	assert.Error(t, err)
}
