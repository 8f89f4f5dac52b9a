// Package loop serializes dispatches from many goroutines onto one.
//
// A store rejects a dispatch that overlaps another one. Code running on
// other goroutines (async tasks, timers, request handlers) therefore does
// not call Dispatch directly; it enqueues the action, and the loop's Run
// goroutine dispatches queued actions one at a time in FIFO order.
//
// ARCHITECTURE:
//
//  1. Enqueue/Schedule/Submit append to an unbounded FIFO queue (any goroutine)
//  2. Run dequeues one item at a time and calls the target's Dispatch
//  3. Failures are logged and processing continues with the next item
//  4. Stop closes the queue; Run drains what is left and returns
//
// Every queued item is stamped with a sequence number from a logical Clock,
// never a wall-clock timestamp, so log output orders the same way on every run.
package loop
