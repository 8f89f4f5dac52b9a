package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flux/internal/ir"
)

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// createTestJournal creates a new journal in a temp directory.
func createTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestOpenCreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	j, err := Open(path)
	require.NoError(t, err)
	defer j.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpenIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		j, err := Open(path)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, j.Close())
	}
}

func TestOpenAppliesPragmas(t *testing.T) {
	j := createTestJournal(t)

	assert.NoError(t, j.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, j.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, j.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, j.verifyPragma("user_version", "1"))
	assert.Error(t, j.verifyPragma("user_version", "7"))
}

func TestOpenRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	j, err := Open(path)
	require.NoError(t, err)
	_, err = j.DB().Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, j.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestCloseNilDB(t *testing.T) {
	assert.NoError(t, (&Journal{}).Close())
}

func TestSessions(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	b, err := j.BeginSession(ctx, "sess-b", "counter", map[string]int{"min": 0}, epoch)
	require.NoError(t, err)
	_, err = j.BeginSession(ctx, "sess-a", "todos", nil, epoch.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, `{"min":0}`, string(b.InitialState))
	assert.Equal(t, ir.MustStateHash(map[string]int{"min": 0}), b.InitialHash)

	e, err := NewEntry("sess-b", 1, ir.Object{"type": ir.String("UP")}, map[string]int{"min": 1})
	require.NoError(t, err)
	require.NoError(t, j.WriteEntry(ctx, e))

	sessions, err := j.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "sess-a", sessions[0].ID)
	assert.Equal(t, "null", string(sessions[0].InitialState))
	assert.Equal(t, 0, sessions[0].EntryCount)
	assert.Equal(t, "sess-b", sessions[1].ID)
	assert.Equal(t, 1, sessions[1].EntryCount)
	assert.True(t, epoch.Equal(sessions[1].CreatedAt))

	got, err := j.GetSession(ctx, "sess-b")
	require.NoError(t, err)
	assert.Equal(t, "counter", got.App)

	_, err = j.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = j.BeginSession(ctx, "sess-b", "counter", 0, epoch)
	assert.Error(t, err, "duplicate session id")

	_, err = j.BeginSession(ctx, "sess-c", "counter", 0.5, epoch)
	assert.Error(t, err, "float state")
}

func TestListSessionsEmpty(t *testing.T) {
	sessions, err := createTestJournal(t).ListSessions(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)
}

func TestWriteAndReadEntries(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()
	_, err := j.BeginSession(ctx, "s1", "counter", 0, epoch)
	require.NoError(t, err)

	for _, seq := range []int64{3, 1, 2} {
		e, err := NewEntry("s1", seq, ir.Object{"type": ir.String("ADD"), "by": ir.Int(seq)}, seq*10)
		require.NoError(t, err)
		require.NoError(t, j.WriteEntry(ctx, e))
	}

	entries, err := j.ReadEntries(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	for i, e := range entries {
		seq := int64(i + 1)
		assert.Equal(t, seq, e.Seq)
		assert.Equal(t, "ADD", e.ActionType)
		assert.Equal(t, ir.Object{"type": ir.String("ADD"), "by": ir.Int(seq)}, e.Action)
		assert.Equal(t, ir.MustStateHash(seq*10), e.StateHash)
		assert.Len(t, e.ActionHash, 64)
	}
	assert.Equal(t, "10", string(entries[0].State))
}

func TestWriteEntryIdempotent(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()
	_, err := j.BeginSession(ctx, "s1", "counter", 0, epoch)
	require.NoError(t, err)

	first, err := NewEntry("s1", 1, ir.Object{"type": ir.String("A")}, 1)
	require.NoError(t, err)
	second, err := NewEntry("s1", 1, ir.Object{"type": ir.String("B")}, 2)
	require.NoError(t, err)

	require.NoError(t, j.WriteEntry(ctx, first))
	require.NoError(t, j.WriteEntry(ctx, second))

	entries, err := j.ReadEntries(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "A", entries[0].ActionType)
}

func TestWriteEntryRequiresSession(t *testing.T) {
	j := createTestJournal(t)

	e, err := NewEntry("nope", 1, ir.Object{"type": ir.String("A")}, 1)
	require.NoError(t, err)
	assert.Error(t, j.WriteEntry(context.Background(), e))
}

func TestNewEntryRejectsFloats(t *testing.T) {
	_, err := NewEntry("s", 1, ir.Object{"type": ir.String("A")}, 1.5)
	assert.Error(t, err)
}

func TestReadEntriesEmpty(t *testing.T) {
	entries, err := createTestJournal(t).ReadEntries(context.Background(), "none")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	a := gen.Generate()
	b := gen.Generate()

	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.Equal(t, "7", a[14:15])
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("one", "two")
	assert.Equal(t, "one", gen.Generate())
	assert.Equal(t, "two", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}
