package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// taggingEnhancer records its name when the creator it returns runs.
func taggingEnhancer(name string, log *[]string) Enhancer {
	return func(next Creator) Creator {
		return func(r Reducer, preloaded State) (Store, error) {
			*log = append(*log, name)
			return next(r, preloaded)
		}
	}
}

func TestCompose_OutermostFirst(t *testing.T) {
	var log []string
	e := Compose(taggingEnhancer("e1", &log), taggingEnhancer("e2", &log), taggingEnhancer("e3", &log))

	_, err := New(counterReducer, WithEnhancer(e))
	require.NoError(t, err)

	assert.Equal(t, []string{"e1", "e2", "e3"}, log)
}

func TestCompose_SkipsNil(t *testing.T) {
	var log []string
	e := Compose(nil, taggingEnhancer("e1", &log), nil)

	_, err := New(counterReducer, WithEnhancer(e))
	require.NoError(t, err)
	assert.Equal(t, []string{"e1"}, log)
}

func TestCompose_EmptyIsIdentity(t *testing.T) {
	s, err := New(counterReducer, WithEnhancer(Compose()))
	require.NoError(t, err)

	_, ok := s.(*core)
	assert.True(t, ok, "identity enhancer returns the bare store")
}

func TestCompose_MiddlewareEnhancers(t *testing.T) {
	var log []string
	s, err := New(counterReducer, WithEnhancer(Compose(
		ApplyMiddleware(tracer("outer", &log)),
		ApplyMiddleware(tracer("inner", &log)),
	)))
	require.NoError(t, err)

	_, err = s.Dispatch(Record{"type": "UP"})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer>", "inner>", "<inner", "<outer"}, log)
}

func TestCreate_BareStore(t *testing.T) {
	s, err := Create(counterReducer, counterState{Min: 2})
	require.NoError(t, err)
	assert.Equal(t, counterState{Min: 2}, s.GetState())

	_, err = Create(nil, nil)
	assert.True(t, IsConfigurationError(err))
}

func TestNew_EnhancerReturningNilCreator(t *testing.T) {
	_, err := New(counterReducer, WithEnhancer(func(Creator) Creator { return nil }))
	assert.True(t, IsConfigurationError(err))
}
