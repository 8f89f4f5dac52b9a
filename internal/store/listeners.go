package store

import "sync/atomic"

// Listener is a zero-argument callback invoked after every dispatch.
type Listener func()

// Unsubscribe removes exactly one listener registration. Calling it more than
// once is a no-op.
type Unsubscribe func()

// subscription is one registration. The same Listener may be registered many
// times; each registration has its own subscription.
type subscription struct {
	fn     Listener
	active atomic.Bool
}

// listenerSet is a copy-on-write list of subscriptions in registration order.
//
// Mutations replace the slice, so a snapshot taken at the start of a
// notification pass never sees registrations added during that pass.
// Removals flip the active flag as well, so a snapshot skips entries that
// were unsubscribed before being reached.
//
// Not safe for concurrent use; the owning store guards it with its mutex.
type listenerSet struct {
	subs []*subscription
}

// add appends a registration and returns it.
func (ls *listenerSet) add(fn Listener) *subscription {
	sub := &subscription{fn: fn}
	sub.active.Store(true)

	next := make([]*subscription, len(ls.subs), len(ls.subs)+1)
	copy(next, ls.subs)
	ls.subs = append(next, sub)
	return sub
}

// remove deactivates sub and drops it from the list.
// Returns false if sub was already removed.
func (ls *listenerSet) remove(sub *subscription) bool {
	if !sub.active.CompareAndSwap(true, false) {
		return false
	}

	next := make([]*subscription, 0, len(ls.subs))
	for _, s := range ls.subs {
		if s != sub {
			next = append(next, s)
		}
	}
	ls.subs = next
	return true
}

// clear deactivates every registration.
func (ls *listenerSet) clear() int {
	n := len(ls.subs)
	for _, s := range ls.subs {
		s.active.Store(false)
	}
	ls.subs = nil
	return n
}

// snapshot returns the current registrations. The returned slice is never
// mutated afterwards.
func (ls *listenerSet) snapshot() []*subscription {
	return ls.subs
}

// count returns the number of active registrations.
func (ls *listenerSet) count() int {
	return len(ls.subs)
}

// notify calls every still-active subscription in order.
func notify(subs []*subscription) {
	for _, sub := range subs {
		if sub.active.Load() {
			sub.fn()
		}
	}
}
