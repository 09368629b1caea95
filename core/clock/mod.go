// Package clock provides the time source of the contracts. The time is
// expressed in unix seconds.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time in unix seconds.
type Clock interface {
	Now() int64
}

// MonotonicClock is a clock that never goes backwards. It returns the wall
// time, or the last returned value if the wall time is behind it.
//
// - implements clock.Clock
type MonotonicClock struct {
	sync.Mutex

	last  int64
	nowFn func() time.Time
}

// NewMonotonic returns a monotonic clock over the wall time.
func NewMonotonic() *MonotonicClock {
	return &MonotonicClock{
		nowFn: time.Now,
	}
}

// Now implements clock.Clock. It returns the current time in unix seconds.
func (c *MonotonicClock) Now() int64 {
	c.Lock()
	defer c.Unlock()

	now := c.nowFn().Unix()
	if now > c.last {
		c.last = now
	}

	return c.last
}

// FixedClock is a clock that always returns the same time until it is moved.
//
// - implements clock.Clock
type FixedClock struct {
	sync.Mutex

	now int64
}

// NewFixed returns a clock that returns the given time.
func NewFixed(now int64) *FixedClock {
	return &FixedClock{now: now}
}

// Now implements clock.Clock.
func (c *FixedClock) Now() int64 {
	c.Lock()
	defer c.Unlock()

	return c.now
}

// Set moves the clock to the given time, backwards included.
func (c *FixedClock) Set(now int64) {
	c.Lock()
	c.now = now
	c.Unlock()
}

// Advance moves the clock forward by the number of seconds.
func (c *FixedClock) Advance(seconds int64) {
	c.Lock()
	c.now += seconds
	c.Unlock()
}
