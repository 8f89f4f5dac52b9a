package testutil

import (
	"sync"

	"github.com/roach88/flux/internal/store"
)

// ListenerRecorder counts store notifications and snapshots the state seen
// by each one.
type ListenerRecorder struct {
	mu     sync.Mutex
	get    func() store.State
	states []store.State
}

// NewListenerRecorder returns a recorder reading state through get. get may
// be nil, in which case only notifications are counted.
func NewListenerRecorder(get func() store.State) *ListenerRecorder {
	return &ListenerRecorder{get: get}
}

// Attach subscribes the recorder to s, reading state from s.
func Attach(s store.Store) (*ListenerRecorder, store.Unsubscribe) {
	r := NewListenerRecorder(s.GetState)
	return r, s.Subscribe(r.Listener())
}

// Listener returns the store.Listener to subscribe.
func (r *ListenerRecorder) Listener() store.Listener {
	return func() {
		var state store.State
		if r.get != nil {
			state = r.get()
		}
		r.mu.Lock()
		r.states = append(r.states, state)
		r.mu.Unlock()
	}
}

// Count returns the number of notifications received.
func (r *ListenerRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

// States returns the state observed at each notification, in order.
func (r *ListenerRecorder) States() []store.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]store.State, len(r.states))
	copy(out, r.states)
	return out
}

// Last returns the state observed at the latest notification.
func (r *ListenerRecorder) Last() (store.State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return nil, false
	}
	return r.states[len(r.states)-1], true
}
