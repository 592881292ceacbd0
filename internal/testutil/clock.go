package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant a DeterministicClock reports.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a wall clock for tests that advances by a fixed step
// on every reading, so elapsed times and run timestamps are reproducible.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	ticks int64
	step  time.Duration
}

// NewDeterministicClock creates a clock that advances by step per reading.
// A non-positive step selects one second.
func NewDeterministicClock(step time.Duration) *DeterministicClock {
	if step <= 0 {
		step = time.Second
	}
	return &DeterministicClock{step: step}
}

// Now returns Epoch plus one step per previous call.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := Epoch.Add(time.Duration(c.ticks) * c.step)
	c.ticks++
	return t
}

// Ticks returns how many times Now has been called.
func (c *DeterministicClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Reset rewinds the clock to Epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}

// FixedRunIDs returns predetermined run ids in order, then repeats the last.
type FixedRunIDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedRunIDs creates a generator over ids. With no ids it always
// returns "test-run".
func NewFixedRunIDs(ids ...string) *FixedRunIDs {
	if len(ids) == 0 {
		ids = []string{"test-run"}
	}
	return &FixedRunIDs{ids: ids}
}

// Generate returns the next id.
func (g *FixedRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.ids[g.idx]
	if g.idx < len(g.ids)-1 {
		g.idx++
	}
	return id
}
