// Package store implements the flux state container.
//
// A Store owns exactly one state value and one root reducer. State changes
// only through Dispatch, which runs the reducer and then notifies listeners.
//
// ARCHITECTURE:
//
// Single-Writer Dispatch:
// A store processes one dispatch at a time. This ensures:
// - The next state is never observed half-applied
// - Listener notification order equals registration order
// - Replaying the same actions from the same state yields the same state
//
// Dispatch Flow:
// 1. Dispatch(action) enters the outermost middleware stage (if any)
// 2. Each stage may forward, transform, delay or drop the action
// 3. The bare store validates the action (ValidateAction)
// 4. The in-flight flag is claimed; a second dispatch fails with ReentrancyError
// 5. nextState = reducer(currentState, action)
// 6. nextState is installed, then a snapshot of listeners is notified in order
//
// Composition:
// Combine merges slice reducers into one root reducer. ApplyMiddleware turns an
// ordered list of Middleware stages into an Enhancer. Compose chains Enhancers,
// outermost first. Enhancers receive the next Creator and may return any Store
// implementation; devtools integrate this way without special cases here.
//
// GetState inside a reducer returns the state as it was before the in-flight
// dispatch. Subscribe and Unsubscribe are allowed at any time.
package store
