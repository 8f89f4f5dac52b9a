// Package devtools records a store's action history and supports time travel.
//
// Instrument returns an enhancer. The enhancer lifts the application
// reducer into a history reducer: the inner store's state becomes the full
// history (committed state, staged actions, the state computed after each
// one, skipped flags, the viewed position) while the *Store it returns
// still reports only the application state from GetState.
//
// Controls (JumpTo, Toggle, Reset, Commit, Rollback, Sweep, Import) are
// dispatched through the inner store like any other action. They are
// therefore subject to the same single-writer and reentrancy rules, and
// subscribers are notified after each one.
//
// Replays only call the application reducer. Middleware does not see them,
// so no side effect runs twice. A reducer panic during a replay is recorded
// on that history entry and the entry keeps the previous state; a panic
// while performing a new action propagates like it would without devtools.
package devtools
