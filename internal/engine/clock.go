package engine

// FrameClock records the host's notion of time.
//
// Time and Delta are whatever the host passes to tick; the engine never
// reads the wall clock. Frame counts ticks and only moves forward.
type FrameClock struct {
	time  uint64
	delta uint32
	frame uint64
}

// Advance records a tick and returns the new frame number.
func (c *FrameClock) Advance(time uint64, delta uint32) uint64 {
	c.time = time
	c.delta = delta
	c.frame++
	return c.frame
}

// Time returns the host time of the last tick.
func (c *FrameClock) Time() uint64 { return c.time }

// Delta returns the host delta of the last tick.
func (c *FrameClock) Delta() uint32 { return c.delta }

// Frame returns the number of ticks so far.
func (c *FrameClock) Frame() uint64 { return c.frame }
