package engine

import "time"

// Clock supplies timestamps for rows and history entries. Ordering never
// depends on it: history order comes from the store's per-harness seq.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
