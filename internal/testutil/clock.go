package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start of a DeterministicClock.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a thread-safe fake clock for tests. Every call to
// Now returns the previous value plus Step, starting at Start+Step.
//
// Unlike engine.SystemClock, DeterministicClock can be reset for test reuse.
// The same scenario run twice produces identical timestamps.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	ticks int64
}

// NewDeterministicClock creates a clock starting at Epoch with a one second
// step.
func NewDeterministicClock() *DeterministicClock {
	return NewDeterministicClockAt(Epoch, time.Second)
}

// NewDeterministicClockAt creates a clock with an explicit start and step.
func NewDeterministicClockAt(start time.Time, step time.Duration) *DeterministicClock {
	return &DeterministicClock{start: start.UTC(), step: step}
}

// Now advances the clock by one step and returns the new time.
//
// Monotonic: never returns a value earlier than a previous call.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return c.start.Add(time.Duration(c.ticks) * c.step)
}

// Current returns the last time handed out without advancing.
func (c *DeterministicClock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start.Add(time.Duration(c.ticks) * c.step)
}

// Ticks returns how many times Now has been called.
func (c *DeterministicClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Reset rewinds the clock to its start.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}
