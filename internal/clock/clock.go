// Package clock provides a time abstraction for the refresh loop.
// Use RealClock in production, Zoned to pin readings to the device timezone,
// and MockClock in tests to move time by hand.
package clock

import (
	"sync"
	"time"
)

// Clock is an interface for time operations, allowing time to be mocked in tests.
type Clock interface {
	// Now returns the current time
	Now() time.Time

	// After waits for the duration to elapse and then sends the current time on the returned channel.
	// A non-positive duration fires immediately.
	After(d time.Duration) <-chan time.Time

	// Since returns the time elapsed since t
	Since(t time.Time) time.Duration
}

// RealClock implements Clock using the standard time package
type RealClock struct{}

// NewRealClock creates a new RealClock instance
func NewRealClock() *RealClock {
	return &RealClock{}
}

// Now returns the current time
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// After waits for the duration to elapse and then sends the current time
func (c *RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Since returns the time elapsed since t
func (c *RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// Zoned wraps a Clock so that Now reports wall time in a fixed location.
// The device timezone decides which playlist window is active, so the
// scheduler never reads the host's local zone directly.
type Zoned struct {
	base Clock
	loc  *time.Location
}

// NewZoned returns a clock reading base in loc. A nil loc means UTC.
func NewZoned(base Clock, loc *time.Location) *Zoned {
	if loc == nil {
		loc = time.UTC
	}
	return &Zoned{base: base, loc: loc}
}

// Now returns the base clock's time converted to the configured location
func (z *Zoned) Now() time.Time {
	return z.base.Now().In(z.loc)
}

// After delegates to the base clock
func (z *Zoned) After(d time.Duration) <-chan time.Time {
	return z.base.After(d)
}

// Since delegates to the base clock
func (z *Zoned) Since(t time.Time) time.Duration {
	return z.base.Since(t)
}

// Location returns the configured location
func (z *Zoned) Location() *time.Location {
	return z.loc
}

// MockClock is a Clock implementation for testing that allows manual time control
type MockClock struct {
	mu      sync.Mutex
	current time.Time
	waiters []*mockWaiter
}

type mockWaiter struct {
	deadline time.Time
	ch       chan time.Time
}

// NewMockClock creates a new MockClock starting at the given time
func NewMockClock(start time.Time) *MockClock {
	return &MockClock{
		current: start,
		waiters: make([]*mockWaiter, 0),
	}
}

// Now returns the mock current time
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// After returns a channel that receives the mock time once Advance or Set
// moves the clock past the deadline.
func (c *MockClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.current
		return ch
	}
	c.waiters = append(c.waiters, &mockWaiter{deadline: c.current.Add(d), ch: ch})
	return ch
}

// Since returns the time elapsed since t using the mock current time
func (c *MockClock) Since(t time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.Sub(t)
}

// Waiters returns how many After channels are still pending.
// Tests use it to know a goroutine has parked on the clock before advancing it.
func (c *MockClock) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// Advance moves the mock clock forward by duration d and fires any expired waiters
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	now := c.current

	var remaining []*mockWaiter
	for _, w := range c.waiters {
		if !w.deadline.After(now) {
			w.ch <- now
			continue
		}
		remaining = append(remaining, w)
	}
	c.waiters = remaining
	c.mu.Unlock()
}

// Set sets the mock clock to a specific time and fires any expired waiters
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	oldTime := c.current
	c.mu.Unlock()

	if t.After(oldTime) {
		c.Advance(t.Sub(oldTime))
		return
	}

	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}
