package clock

import (
	"math"
	"testing"
	"time"
)

func TestPulseClock_StartsAtMin(t *testing.T) {
	c := NewPulseClock(2*time.Second, 50, 200)

	if got := c.Value(); got != 50 {
		t.Errorf("expected initial value 50, got %v", got)
	}
}

func TestPulseClock_PeaksAtHalfPeriod(t *testing.T) {
	c := NewPulseClock(2*time.Second, 50, 200)

	c.Advance(1.0) // half the period
	if got := c.Value(); math.Abs(got-200) > 1e-9 {
		t.Errorf("expected max 200 at half period, got %v", got)
	}
}

func TestPulseClock_FullPeriodReturnsToMin(t *testing.T) {
	c := NewPulseClock(2*time.Second, 50, 200)

	c.Advance(2.0)
	if got := c.Value(); math.Abs(got-50) > 1e-9 {
		t.Errorf("expected min 50 after full period, got %v", got)
	}
}

func TestPulseClock_BoundedOutput(t *testing.T) {
	c := NewPulseClock(700*time.Millisecond, 10, 30)

	for i := 0; i < 500; i++ {
		c.Advance(0.0173)
		v := c.Value()
		if v < 10-1e-9 || v > 30+1e-9 {
			t.Fatalf("value %v escaped [10,30] at step %d", v, i)
		}
	}
}

func TestPulseClock_RestartLaw(t *testing.T) {
	// Hide-then-show resets phase: output equals Min at the next t=0 for
	// any interleaving of advances before the reset.
	advances := [][]float64{
		{0.3},
		{0.5, 0.5, 0.25},
		{1.9},
		{0.1, 1.2, 0.7, 0.01},
	}

	for _, seq := range advances {
		c := NewPulseClock(2*time.Second, 50, 200)
		for _, dt := range seq {
			c.Advance(dt)
		}
		c.Reset()
		if got := c.Value(); got != 50 {
			t.Errorf("after advances %v and reset, expected 50, got %v", seq, got)
		}
	}
}

func TestPulseClock_TickEstablishesReference(t *testing.T) {
	c := NewPulseClock(2*time.Second, 0, 1)

	t0 := time.Now()
	c.Tick(t0) // first tick contributes nothing
	if c.Elapsed() != 0 {
		t.Errorf("expected 0 elapsed after first tick, got %v", c.Elapsed())
	}

	c.Tick(t0.Add(500 * time.Millisecond))
	if math.Abs(c.Elapsed()-0.5) > 1e-9 {
		t.Errorf("expected 0.5 elapsed, got %v", c.Elapsed())
	}
}

func TestPulseClock_NegativeDeltaIgnored(t *testing.T) {
	c := NewPulseClock(time.Second, 0, 1)
	c.Advance(0.25)
	c.Advance(-5)
	if math.Abs(c.Elapsed()-0.25) > 1e-9 {
		t.Errorf("negative delta must be ignored, elapsed=%v", c.Elapsed())
	}
}

func TestTripClock_Accumulates(t *testing.T) {
	c := NewTripClock(1800)

	c.Advance(10)
	c.Advance(2.5)
	if got := c.CurrentTime(); math.Abs(got-12.5) > 1e-9 {
		t.Errorf("expected 12.5, got %v", got)
	}
}

func TestTripClock_Wraparound(t *testing.T) {
	// Delta sequences summing to a multiple of the loop length leave the
	// cursor at 0 modulo the loop. Use binary-exact deltas.
	loop := 8.0
	sequences := [][]float64{
		{8},
		{4, 4},
		{0.5, 0.5, 0.5, 0.5, 2, 4},
		{8, 8, 8},    // three full loops
		{6, 6, 4},    // two loops in uneven steps
		{7.75, 0.25}, // wrap on the boundary
	}

	for _, seq := range sequences {
		c := NewTripClock(loop)
		for _, dt := range seq {
			c.Advance(dt)
		}
		got := math.Mod(c.CurrentTime(), loop)
		if got > 1e-9 && loop-got > 1e-9 {
			t.Errorf("sequence %v: expected cursor 0 mod loop, got %v", seq, c.CurrentTime())
		}
	}
}

func TestTripClock_PauseBySkippingTicks(t *testing.T) {
	c := NewTripClock(100)

	t0 := time.Now()
	c.Tick(t0)
	c.Tick(t0.Add(time.Second))
	if math.Abs(c.CurrentTime()-1) > 1e-9 {
		t.Fatalf("expected 1s accumulated, got %v", c.CurrentTime())
	}

	// Hide: reset, no ticks while hidden. On show, the first tick after
	// reset contributes nothing even if wall time moved a lot.
	c.Reset()
	c.Tick(t0.Add(time.Hour))
	if c.CurrentTime() != 0 {
		t.Errorf("expected 0 after reset and re-reference, got %v", c.CurrentTime())
	}
}

func TestTripClock_ResetToInitialPhase(t *testing.T) {
	c := NewTripClock(60)
	c.Advance(33)
	c.Reset()
	if c.CurrentTime() != 0 {
		t.Errorf("expected 0 after reset, got %v", c.CurrentTime())
	}
}
