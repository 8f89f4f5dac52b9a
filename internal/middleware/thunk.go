package middleware

import "github.com/roach88/flux/internal/store"

// Thunk is a dispatchable function. The Thunks stage calls it with the
// store API instead of forwarding it; its return values become the
// dispatch result.
type Thunk func(api store.API) (any, error)

// Thunks returns a stage that runs dispatched Thunks. Anything else is
// forwarded unchanged.
func Thunks() store.Middleware {
	return store.MiddlewareFunc(func(api store.API, next store.Dispatcher) store.Dispatcher {
		return func(action any) (any, error) {
			switch fn := action.(type) {
			case Thunk:
				if fn == nil {
					return nil, store.NewInvalidActionError(action, "nil thunk")
				}
				return fn(api)
			case func(store.API) (any, error):
				if fn == nil {
					return nil, store.NewInvalidActionError(action, "nil thunk")
				}
				return fn(api)
			}
			return next(action)
		}
	})
}
