// Package clock provides the per-animation frame-driven state accumulators.
// Clocks are owned and advanced by the overlay lifecycle manager on the
// frame loop; they are not safe for concurrent use.
package clock

import (
	"math"
	"time"
)

// PulseClock maps elapsed time through a periodic sine waveform into a
// bounded [Min, Max] output. At elapsed 0 the output is exactly Min, so a
// reset clock always restarts from the same phase.
type PulseClock struct {
	Period time.Duration
	Min    float64
	Max    float64

	elapsed   float64 // seconds
	lastFrame time.Time
}

// NewPulseClock creates a pulse clock with the given period and output range.
func NewPulseClock(period time.Duration, min, max float64) *PulseClock {
	return &PulseClock{Period: period, Min: min, Max: max}
}

// Tick advances the clock using the frame timestamp. The first tick after
// a reset establishes the reference frame and contributes no elapsed time.
func (c *PulseClock) Tick(now time.Time) {
	if !c.lastFrame.IsZero() {
		c.Advance(now.Sub(c.lastFrame).Seconds())
	}
	c.lastFrame = now
}

// Advance adds dt seconds of elapsed time.
func (c *PulseClock) Advance(dt float64) {
	if dt < 0 {
		return
	}
	c.elapsed += dt
}

// Value returns the current waveform output in [Min, Max].
func (c *PulseClock) Value() float64 {
	period := c.Period.Seconds()
	if period <= 0 {
		return c.Min
	}
	phase := math.Mod(c.elapsed, period) / period
	// sin shifted so phase 0 yields the minimum
	wave := (math.Sin(2*math.Pi*phase-math.Pi/2) + 1) / 2
	return c.Min + (c.Max-c.Min)*wave
}

// Elapsed returns the accumulated time in seconds.
func (c *PulseClock) Elapsed() float64 {
	return c.elapsed
}

// Reset returns the clock to its initial phase. The next show starts from
// Min regardless of where the previous cycle stopped.
func (c *PulseClock) Reset() {
	c.elapsed = 0
	c.lastFrame = time.Time{}
}
