package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicClock_StartsAtEpoch(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, Epoch, clock.Current())
	assert.Equal(t, int64(0), clock.Ticks())
}

func TestDeterministicClock_NowAdvancesByStep(t *testing.T) {
	clock := NewDeterministicClock()

	assert.Equal(t, Epoch.Add(1*time.Second), clock.Now())
	assert.Equal(t, Epoch.Add(2*time.Second), clock.Now())
	assert.Equal(t, Epoch.Add(2*time.Second), clock.Current())
	assert.Equal(t, int64(2), clock.Ticks())
}

func TestDeterministicClock_CustomStartAndStep(t *testing.T) {
	start := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := NewDeterministicClockAt(start, time.Minute)

	assert.Equal(t, start.Add(time.Minute), clock.Now())
	assert.Equal(t, start.Add(2*time.Minute), clock.Now())
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock()
	clock.Now()
	clock.Now()

	clock.Reset()

	assert.Equal(t, Epoch, clock.Current())
	assert.Equal(t, Epoch.Add(time.Second), clock.Now(), "after Reset, sequence restarts")
}

func TestDeterministicClock_ConcurrentAccess(t *testing.T) {
	clock := NewDeterministicClock()

	const goroutines = 10
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	seen := make(chan time.Time, goroutines*callsPerGoroutine)
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range callsPerGoroutine {
				seen <- clock.Now()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[time.Time]bool)
	for ts := range seen {
		require.False(t, unique[ts], "duplicate timestamp %v", ts)
		unique[ts] = true
	}
	assert.Len(t, unique, goroutines*callsPerGoroutine)
	assert.Equal(t, int64(goroutines*callsPerGoroutine), clock.Ticks())
}
