package engine

import "time"

// Clock supplies the timestamps written to run bookkeeping rows.
//
// Implemented by SystemClock in production and testutil.DeterministicClock
// in tests, which keeps run rows reproducible.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
