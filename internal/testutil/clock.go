package testutil

import (
	"sync"
	"time"
)

// Epoch is the wall time a DeterministicClock starts from.
var Epoch = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock hands out step sequence numbers and matching wall
// times. The same scenario run twice with a fresh (or Reset) clock sees the
// same numbers and times, so its trace and journal are byte-identical.
//
// Safe for concurrent use.
type DeterministicClock struct {
	mu    sync.Mutex
	seq   int64
	epoch time.Time
}

// NewDeterministicClock returns a clock at 0 whose Now starts at Epoch.
// The first call to Next returns 1.
func NewDeterministicClock() *DeterministicClock {
	return NewDeterministicClockAt(Epoch)
}

// NewDeterministicClockAt returns a clock at 0 whose Now starts at epoch.
func NewDeterministicClockAt(epoch time.Time) *DeterministicClock {
	return &DeterministicClock{epoch: epoch.UTC()}
}

// Next increments and returns the sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the sequence number without incrementing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Now returns the epoch advanced by one second per sequence number.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch.Add(time.Duration(c.seq) * time.Second)
}

// Reset rewinds the clock to 0.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
