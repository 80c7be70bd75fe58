package testutil

import (
	"sync"
	"time"
)

// Epoch is the first timestamp returned by a DeterministicClock.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a wall clock for tests that advances by a fixed
// tick on every reading.
//
// The same scenario read through a fresh clock yields identical timestamps,
// which keeps reports byte-identical for golden comparison.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	start time.Time
	tick  time.Duration
	reads int64
}

// NewDeterministicClock creates a clock starting at Epoch that advances by
// tick per Now() call.
//
// The first call to Now() returns Epoch.
func NewDeterministicClock(tick time.Duration) *DeterministicClock {
	return &DeterministicClock{start: Epoch, tick: tick}
}

// Now returns the current reading and advances the clock.
//
// Monotonic: never decreases.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.reads) * c.tick)
	c.reads++
	return t
}

// Advance moves the clock forward by d without counting as a reading.
// Used to simulate slow steps.
func (c *DeterministicClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = c.start.Add(d)
}

// Reads returns how many times Now() was called.
func (c *DeterministicClock) Reads() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// Reset rewinds the clock to Epoch.
//
// Used for test reuse. After Reset(), the next call to Now() returns Epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = Epoch
	c.reads = 0
}
