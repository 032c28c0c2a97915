// Package layer composes the ordered list of animated layer
// specifications pushed into the overlay each frame.
package layer

import "github.com/yairtitelboim/Maps-sub002/internal/core"

// AnimatedLayerSpec describes one animated visual layer for a single
// frame. Specs are recomputed every frame a layer stays visible and
// removed from the composed list when it is hidden.
type AnimatedLayerSpec struct {
	ID      string         `json:"id"`
	Kind    core.LayerKind `json:"kind"`
	Visible bool           `json:"visible"`

	// pulse-circle geometry
	Position  core.Position2D `json:"position,omitempty"`
	Radius    float64         `json:"radius,omitempty"`
	RadiusMin float64         `json:"radiusMin,omitempty"`
	RadiusMax float64         `json:"radiusMax,omitempty"`

	Color          core.Color `json:"color"`
	WidthMinPixels float64    `json:"widthMinPixels,omitempty"`

	// flow-trips timing
	LoopLength  float64 `json:"loopLength,omitempty"`
	TrailLength float64 `json:"trailLength,omitempty"`
	CurrentTime float64 `json:"currentTime"`

	// Trips is nil until route data loads. The spec is still emitted so
	// the overlay can exist and be updated once data arrives.
	Trips []core.TripParticle `json:"-"`
}

// VisibilityFlags are the application-owned per-animation toggles.
type VisibilityFlags struct {
	Pulse bool
	Flow  bool
}

// Any returns true when at least one animation is visible.
func (f VisibilityFlags) Any() bool {
	return f.Pulse || f.Flow
}

// ClockStates carries the per-frame clock outputs into composition.
type ClockStates struct {
	// PulseRadius is the pulse clock's current waveform output.
	PulseRadius float64
	// TripTime is the trip clock's loop cursor in seconds.
	TripTime float64
}
