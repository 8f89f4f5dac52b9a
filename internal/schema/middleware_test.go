package schema

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flux/internal/store"
)

func count(state store.State, action store.Action) store.State {
	n, _ := state.(int)
	if action.ActionType() == store.ActionInit {
		return n
	}
	return n + 1
}

func newValidatedStore(t *testing.T, opts ...MiddlewareOption) store.Store {
	t.Helper()
	s, err := store.New(count, store.WithEnhancer(store.ApplyMiddleware(Middleware(mustCompile(t), opts...))))
	require.NoError(t, err)
	return s
}

func TestMiddlewareRejectsInvalid(t *testing.T) {
	var buf bytes.Buffer
	s := newValidatedStore(t, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	_, err := s.Dispatch(store.Record{"type": "todos/add", "text": ""})
	require.Error(t, err)
	assert.True(t, store.IsInvalidActionError(err))
	assert.Contains(t, err.Error(), "todos/add")
	assert.Contains(t, buf.String(), "action rejected by schema")
	assert.Equal(t, 0, s.GetState())

	_, err = s.Dispatch(map[string]any{"type": "todos/add", "text": "ok"})
	require.NoError(t, err)
	assert.Equal(t, 1, s.GetState())
}

func TestMiddlewareUnknownTypes(t *testing.T) {
	lenient := newValidatedStore(t)
	_, err := lenient.Dispatch(store.Record{"type": "UP"})
	require.NoError(t, err)

	strict := newValidatedStore(t, Strict())
	_, err = strict.Dispatch(store.Record{"type": "UP"})
	assert.True(t, store.IsInvalidActionError(err))
}

func TestMiddlewarePassesNonActions(t *testing.T) {
	s := newValidatedStore(t, Strict())

	// Not an action at all: the core store rejects it, not the schema.
	_, err := s.Dispatch(7)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "schema")

	_, err = s.Dispatch(store.Record{"type": "@@internal"})
	require.NoError(t, err)
}
