// Package testutil holds helpers shared by tests and the scenario harness.
package testutil

import "sync"

// DefaultFrameDelta is the delta, in host time units, of a 60 Hz frame in
// milliseconds (rounded).
const DefaultFrameDelta uint32 = 16

// TickClock produces deterministic host time for tick calls.
//
// Each Next advances time by the frame delta, so the same scenario always
// ticks with the same arguments.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type TickClock struct {
	mu    sync.Mutex
	time  uint64
	delta uint32
}

// NewTickClock creates a clock at time 0. A zero delta uses
// DefaultFrameDelta.
func NewTickClock(delta uint32) *TickClock {
	if delta == 0 {
		delta = DefaultFrameDelta
	}
	return &TickClock{delta: delta}
}

// Next advances one frame and returns the tick arguments.
func (c *TickClock) Next() (time uint64, delta uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.time += uint64(c.delta)
	return c.time, c.delta
}

// Set moves the clock to an explicit time, for scripts that tick with
// their own values. The next Next continues from there.
func (c *TickClock) Set(time uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.time = time
}

// Current returns the time of the last frame without advancing.
func (c *TickClock) Current() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.time
}

// Reset returns the clock to time 0.
func (c *TickClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.time = 0
}
