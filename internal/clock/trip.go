package clock

import (
	"math"
	"time"
)

// TripClock accumulates per-frame delta time into a looping time cursor.
// Accumulating deltas rather than absolute timestamps makes the cursor
// immune to scheduling jitter, and pausing is simply not ticking.
type TripClock struct {
	LoopLength float64 // seconds

	currentTime float64
	lastFrame   time.Time
}

// NewTripClock creates a trip clock that wraps at loopLength seconds.
func NewTripClock(loopLength float64) *TripClock {
	return &TripClock{LoopLength: loopLength}
}

// Tick advances the cursor using the frame timestamp. The first tick after
// a reset establishes the reference frame and contributes no delta.
func (c *TripClock) Tick(now time.Time) {
	if !c.lastFrame.IsZero() {
		c.Advance(now.Sub(c.lastFrame).Seconds())
	}
	c.lastFrame = now
}

// Advance adds dt seconds, wrapping modulo the loop length.
func (c *TripClock) Advance(dt float64) {
	if dt < 0 || c.LoopLength <= 0 {
		return
	}
	c.currentTime = math.Mod(c.currentTime+dt, c.LoopLength)
}

// CurrentTime returns the loop cursor in [0, LoopLength).
func (c *TripClock) CurrentTime() float64 {
	return c.currentTime
}

// Reset returns the cursor to zero so the next show starts from the
// beginning of the loop.
func (c *TripClock) Reset() {
	c.currentTime = 0
	c.lastFrame = time.Time{}
}
