package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tracer records the order in which stages see actions.
func tracer(name string, log *[]string) Middleware {
	return MiddlewareFunc(func(api API, next Dispatcher) Dispatcher {
		return func(action any) (any, error) {
			*log = append(*log, name+">")
			res, err := next(action)
			*log = append(*log, "<"+name)
			return res, err
		}
	})
}

func TestApplyMiddleware_OuterToInnerOrder(t *testing.T) {
	var log []string
	s, err := New(counterReducer, WithEnhancer(ApplyMiddleware(
		tracer("a", &log),
		tracer("b", &log),
		tracer("c", &log),
	)))
	require.NoError(t, err)

	_, err = s.Dispatch(Record{"type": "UP"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a>", "b>", "c>", "<c", "<b", "<a"}, log)
	assert.Equal(t, 1, s.GetState().(counterState).Min)
}

func TestApplyMiddleware_InitBypassesMiddleware(t *testing.T) {
	var log []string
	_, err := New(counterReducer, WithEnhancer(ApplyMiddleware(tracer("a", &log))))
	require.NoError(t, err)

	assert.Empty(t, log)
}

func TestApplyMiddleware_Transform(t *testing.T) {
	upper := MiddlewareFunc(func(api API, next Dispatcher) Dispatcher {
		return func(action any) (any, error) {
			if s, ok := action.(string); ok {
				return next(Record{"type": s})
			}
			return next(action)
		}
	})

	s, err := New(counterReducer, WithEnhancer(ApplyMiddleware(upper)))
	require.NoError(t, err)

	_, err = s.Dispatch("UP")
	require.NoError(t, err)
	assert.Equal(t, 1, s.GetState().(counterState).Min)
}

func TestApplyMiddleware_Swallow(t *testing.T) {
	swallow := MiddlewareFunc(func(api API, next Dispatcher) Dispatcher {
		return func(action any) (any, error) {
			if a, ok := action.(Action); ok && a.ActionType() == "UP" {
				return nil, nil
			}
			return next(action)
		}
	})

	s, err := New(counterReducer, WithEnhancer(ApplyMiddleware(swallow)))
	require.NoError(t, err)

	notified := 0
	s.Subscribe(func() { notified++ })

	_, err = s.Dispatch(Record{"type": "UP"})
	require.NoError(t, err)
	assert.Equal(t, 0, s.GetState().(counterState).Min)
	assert.Zero(t, notified)
}

func TestApplyMiddleware_APIDispatchReentersWholeChain(t *testing.T) {
	var log []string
	followUp := MiddlewareFunc(func(api API, next Dispatcher) Dispatcher {
		return func(action any) (any, error) {
			res, err := next(action)
			if err != nil {
				return res, err
			}
			if a, ok := action.(Action); ok && a.ActionType() == "UP" {
				if _, err := api.Dispatch(Record{"type": "DOWN"}); err != nil {
					return nil, err
				}
			}
			return res, nil
		}
	})

	s, err := New(counterReducer, WithEnhancer(ApplyMiddleware(tracer("outer", &log), followUp)))
	require.NoError(t, err)

	_, err = s.Dispatch(Record{"type": "UP"})
	require.NoError(t, err)

	assert.Equal(t, 0, s.GetState().(counterState).Min)
	assert.Equal(t, []string{"outer>", "outer>", "<outer", "<outer"}, log)
}

func TestApplyMiddleware_GetStateSeesCurrentState(t *testing.T) {
	var before, after State
	peek := MiddlewareFunc(func(api API, next Dispatcher) Dispatcher {
		return func(action any) (any, error) {
			before = api.GetState()
			res, err := next(action)
			after = api.GetState()
			return res, err
		}
	})

	s, err := New(counterReducer, WithEnhancer(ApplyMiddleware(peek)))
	require.NoError(t, err)

	_, err = s.Dispatch(Record{"type": "UP"})
	require.NoError(t, err)
	assert.Equal(t, counterState{Min: 0}, before)
	assert.Equal(t, counterState{Min: 1}, after)
}

func TestApplyMiddleware_BareStoreStillValidates(t *testing.T) {
	passThrough := MiddlewareFunc(func(api API, next Dispatcher) Dispatcher {
		return next
	})
	s, err := New(counterReducer, WithEnhancer(ApplyMiddleware(passThrough)))
	require.NoError(t, err)

	_, err = s.Dispatch(func() {})
	assert.True(t, IsInvalidActionError(err))
}

func TestApplyMiddleware_DispatchDuringConstruction(t *testing.T) {
	var constructErr error
	eager := MiddlewareFunc(func(api API, next Dispatcher) Dispatcher {
		_, constructErr = api.Dispatch(Record{"type": "UP"})
		return next
	})

	_, err := New(counterReducer, WithEnhancer(ApplyMiddleware(eager)))
	require.NoError(t, err)
	assert.True(t, IsConfigurationError(constructErr))
}

func TestApplyMiddleware_NilStage(t *testing.T) {
	_, err := New(counterReducer, WithEnhancer(ApplyMiddleware(nil)))
	assert.True(t, IsConfigurationError(err))

	var nilFunc MiddlewareFunc
	_, err = New(counterReducer, WithEnhancer(ApplyMiddleware(nilFunc)))
	assert.True(t, IsConfigurationError(err))
}

func TestApplyMiddleware_SubscribeAndReplacePassThrough(t *testing.T) {
	s, err := New(counterReducer, WithEnhancer(ApplyMiddleware()))
	require.NoError(t, err)

	notified := 0
	unsub := s.Subscribe(func() { notified++ })
	_, err = s.Dispatch(Record{"type": "UP"})
	require.NoError(t, err)
	unsub()
	_, err = s.Dispatch(Record{"type": "UP"})
	require.NoError(t, err)

	assert.Equal(t, 1, notified)
	require.NoError(t, s.ReplaceReducer(counterReducer))
}

func TestChain_Flattens(t *testing.T) {
	var log []string
	c := Chain(tracer("a", &log), Chain(tracer("b", &log), tracer("c", &log)))

	d := c.Wrap(nil, func(action any) (any, error) {
		log = append(log, "store")
		return action, nil
	})
	_, err := d(Record{"type": "X"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a>", "b>", "c>", "store", "<c", "<b", "<a"}, log)
	assert.Len(t, c.(chain), 3)
}
