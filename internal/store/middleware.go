package store

// Dispatcher is one stage of the dispatch pipeline.
type Dispatcher func(action any) (any, error)

// API is the view of the store handed to middleware. Dispatch is bound to
// the outermost stage, so a middleware can send follow-up actions through the
// whole chain.
type API interface {
	GetState() State
	Dispatch(action any) (any, error)
}

// Middleware is a dispatch pipeline stage. Wrap receives the next inner stage
// and returns the stage that replaces it. A stage may call next with the same
// or a different action, call it later, or never call it.
type Middleware interface {
	Wrap(api API, next Dispatcher) Dispatcher
}

// MiddlewareFunc adapts a function to Middleware.
type MiddlewareFunc func(api API, next Dispatcher) Dispatcher

// Wrap implements Middleware.
func (f MiddlewareFunc) Wrap(api API, next Dispatcher) Dispatcher {
	return f(api, next)
}

// chain is the Middleware returned by Chain.
type chain []Middleware

// Chain composes stages into one Middleware. The first stage is outermost:
// it sees every action first and its next is the second stage.
func Chain(stages ...Middleware) Middleware {
	c := make(chain, 0, len(stages))
	for _, st := range stages {
		if inner, ok := st.(chain); ok {
			c = append(c, inner...)
			continue
		}
		c = append(c, st)
	}
	return c
}

// Wrap implements Middleware.
func (c chain) Wrap(api API, next Dispatcher) Dispatcher {
	d := next
	for i := len(c) - 1; i >= 0; i-- {
		d = c[i].Wrap(api, d)
	}
	return d
}

// validate reports the first nil stage.
func (c chain) validate() error {
	for i, st := range c {
		if st == nil {
			return NewConfigurationError("middleware stage %d must not be nil", i)
		}
		if f, ok := st.(MiddlewareFunc); ok && f == nil {
			return NewConfigurationError("middleware stage %d must not be nil", i)
		}
	}
	return nil
}

// ApplyMiddleware returns an Enhancer that installs stages around the
// dispatch of the store produced by the next creator.
//
// Stages run outer-to-inner in the order given. The innermost next is the
// wrapped store's own Dispatch, which still validates actions, so values
// such as thunks must be turned into plain actions by some stage.
func ApplyMiddleware(stages ...Middleware) Enhancer {
	c := Chain(stages...).(chain)

	return func(next Creator) Creator {
		return func(reducer Reducer, preloaded State) (Store, error) {
			if err := c.validate(); err != nil {
				return nil, err
			}

			inner, err := next(reducer, preloaded)
			if err != nil {
				return nil, err
			}

			ms := &middlewareStore{Store: inner}
			ms.dispatch = func(action any) (any, error) {
				return nil, NewConfigurationError("dispatching while constructing middleware is not allowed")
			}

			d := c.Wrap(middlewareAPI{ms}, inner.Dispatch)
			if d == nil {
				return nil, NewConfigurationError("middleware returned a nil dispatcher")
			}
			ms.dispatch = d
			return ms, nil
		}
	}
}

// middlewareStore routes Dispatch through the middleware pipeline and
// delegates everything else to the wrapped store.
type middlewareStore struct {
	Store
	dispatch Dispatcher
}

// Dispatch enters the outermost middleware stage.
func (m *middlewareStore) Dispatch(action any) (any, error) {
	return m.dispatch(action)
}

// middlewareAPI resolves dispatch at call time so stages captured during
// construction reach the final outermost dispatcher.
type middlewareAPI struct {
	ms *middlewareStore
}

func (a middlewareAPI) GetState() State {
	return a.ms.GetState()
}

func (a middlewareAPI) Dispatch(action any) (any, error) {
	return a.ms.dispatch(action)
}
