package loop

import "sync"

// Item is a queued action awaiting dispatch.
type Item struct {
	Seq    int64
	Action any

	// result receives the dispatch outcome for Submit callers. Nil for
	// fire-and-forget items.
	result chan Result
}

// Result is the outcome of dispatching one item.
type Result struct {
	Value any
	Err   error
}

// queue is a thread-safe unbounded FIFO.
//
// Unbounded so that a listener or task can enqueue follow-up actions
// without blocking on the loop that is currently running it.
//
// The signal channel enables context-aware waiting in the Run loop.
type queue struct {
	mu     sync.Mutex
	items  []Item
	closed bool
	signal chan struct{} // Signals item availability (buffered, size 1)
}

func newQueue() *queue {
	return &queue{
		items:  make([]Item, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// push adds an item to the back of the queue, stamping it while the lock
// is held so sequence order matches queue order.
// Returns false if the queue is closed.
func (q *queue) push(clock *Clock, item Item) (int64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0, false
	}

	item.Seq = clock.Next()
	q.items = append(q.items, item)

	// Non-blocking - buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return item.Seq, true
}

// tryPop removes and returns the front item without blocking.
func (q *queue) tryPop() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Item{}, false
	}

	item := q.items[0]
	// Clear the slot so the backing array does not retain the action.
	q.items[0] = Item{}

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return item, true
}

// wait returns a channel that signals when items may be available.
// The channel is closed once the queue is closed.
func (q *queue) wait() <-chan struct{} {
	return q.signal
}

func (q *queue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *queue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// close signals that no more items will be pushed and wakes waiters.
func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
