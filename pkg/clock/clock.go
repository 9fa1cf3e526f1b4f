// Package clock provides the loop's shared time source. The worker loop
// advances the clock exactly once per iteration so every job observes a
// single consistent "now" for its whole run.
package clock

import (
	"sync"
	"time"
)

// Clock is advanced by the worker loop and read by jobs.
type Clock interface {
	// Tick advances the clock to the next instant. Called once per
	// loop iteration, before the job runs.
	Tick()
	// Now returns the instant of the current iteration.
	Now() time.Time
}

// System caches the wall clock on each Tick.
type System struct {
	mu  sync.RWMutex
	now time.Time
}

// NewSystem creates a system clock initialized to the current wall time
func NewSystem() *System {
	return &System{now: time.Now()}
}

func (c *System) Tick() {
	c.mu.Lock()
	c.now = time.Now()
	c.mu.Unlock()
}

func (c *System) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Manual steps by a fixed amount on each Tick. Test use only.
type Manual struct {
	mu   sync.RWMutex
	now  time.Time
	step time.Duration
}

// NewManual creates a manual clock starting at start, advancing by step per Tick
func NewManual(start time.Time, step time.Duration) *Manual {
	return &Manual{now: start, step: step}
}

func (c *Manual) Tick() {
	c.mu.Lock()
	c.now = c.now.Add(c.step)
	c.mu.Unlock()
}

func (c *Manual) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}
