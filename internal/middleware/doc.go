// Package middleware provides reusable dispatch stages for store.ApplyMiddleware.
//
//   - Logger: structured log line per dispatch (type, duration, changed)
//   - Thunks: dispatch a function that receives the store API
//   - Async: dispatch a Task; its outcome arrives later as ordinary actions
//   - Recoverer: turn panics in reducers or listeners into errors
//
// Order matters. Stages listed first see a dispatch first:
//
//	store.ApplyMiddleware(
//	    middleware.Recoverer(logger),
//	    middleware.Thunks(),
//	    async,
//	    middleware.Logger(logger),
//	)
package middleware

import (
	"fmt"

	"github.com/roach88/flux/internal/store"
)

// label names a dispatched value for logs and errors.
func label(v any) string {
	switch a := v.(type) {
	case store.Action:
		return a.ActionType()
	case map[string]any:
		return store.Record(a).ActionType()
	default:
		return fmt.Sprintf("%T", v)
	}
}
