// Package core holds the plain domain types shared by every overlay
// component. It deliberately has no dependencies so geometry, layer, and
// lifecycle packages can all import it.
package core

// Position2D is a point in the overlay's coordinate space (Web Mercator
// meters, EPSG:3857).
type Position2D struct {
	X float64
	Y float64
}

// Position3D is a point with elevation.
type Position3D struct {
	X float64
	Y float64
	Z float64
}

// Polyline is an ordered coordinate sequence.
type Polyline []Position2D

// Color is an RGBA color with 0-255 components.
type Color struct {
	R uint8
	G uint8
	B uint8
	A uint8
}

// ViewState mirrors the host map's camera parameters. It has no
// independent lifecycle; it is always derived fresh from the host map.
type ViewState struct {
	Longitude float64
	Latitude  float64
	Zoom      float64
	Pitch     float64
	Bearing   float64
}

// LayerKind identifies an animated layer archetype.
type LayerKind string

const (
	// KindPulseCircle is a circle whose radius pulses on a periodic waveform.
	KindPulseCircle LayerKind = "pulse-circle"
	// KindFlowTrips is a set of particles flowing along predefined paths.
	KindFlowTrips LayerKind = "flow-trips"
)

// Route is a pre-parsed line-geometry record from the geometry-data
// collaborator.
type Route struct {
	ID         uint
	Name       string
	Color      Color
	Path       Polyline
	Properties map[string]any
}

// TripParticle is an animated particle following a predefined path.
// Path and Timestamps are parallel: Timestamps[i] is the loop time (in
// seconds) at which the particle reaches Path[i]. Built once per route
// load and immutable afterwards; only the shared layer time cursor moves.
type TripParticle struct {
	Path        Polyline
	Timestamps  []float64
	Color       Color
	TrailLength float64
}
