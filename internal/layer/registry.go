package layer

import "github.com/yairtitelboim/Maps-sub002/internal/core"

// PulseParams holds the static configuration of the pulsing circle.
// Only the radius changes frame to frame.
type PulseParams struct {
	ID        string
	Position  core.Position2D
	Color     core.Color
	RadiusMin float64
	RadiusMax float64
}

// TripParams holds the static configuration of the flow-trips layer.
type TripParams struct {
	ID             string
	Color          core.Color
	TrailLength    float64
	LoopLength     float64
	WidthMinPixels float64
}

// Registry owns the static layer parameters and the loaded trip data,
// and composes the per-frame spec list from the current visibility
// flags and clock states. It is a pure value transform with no side
// effects, so callers can invoke Compose from any goroutine as long as
// SetTrips is not racing it. In practice both run on the frame loop.
type Registry struct {
	pulse PulseParams
	trip  TripParams
	trips []core.TripParticle
}

func NewRegistry(pulse PulseParams, trip TripParams) *Registry {
	return &Registry{pulse: pulse, trip: trip}
}

// SetTrips replaces the trip particle data. Passing nil reverts the
// flow layer to its placeholder spec.
func (r *Registry) SetTrips(trips []core.TripParticle) {
	r.trips = trips
}

// Trips returns the currently loaded trip data.
func (r *Registry) Trips() []core.TripParticle {
	return r.trips
}

// Compose returns the ordered layer specs for one frame. Hidden layers
// are omitted entirely rather than emitted with Visible=false, so the
// overlay drops them. The pulse circle always renders under the trips.
func (r *Registry) Compose(flags VisibilityFlags, clocks ClockStates) []AnimatedLayerSpec {
	specs := make([]AnimatedLayerSpec, 0, 2)
	if flags.Pulse {
		specs = append(specs, AnimatedLayerSpec{
			ID:        r.pulse.ID,
			Kind:      core.KindPulseCircle,
			Visible:   true,
			Position:  r.pulse.Position,
			Radius:    clocks.PulseRadius,
			RadiusMin: r.pulse.RadiusMin,
			RadiusMax: r.pulse.RadiusMax,
			Color:     r.pulse.Color,
		})
	}
	if flags.Flow {
		specs = append(specs, AnimatedLayerSpec{
			ID:             r.trip.ID,
			Kind:           core.KindFlowTrips,
			Visible:        true,
			Color:          r.trip.Color,
			TrailLength:    r.trip.TrailLength,
			LoopLength:     r.trip.LoopLength,
			WidthMinPixels: r.trip.WidthMinPixels,
			CurrentTime:    clocks.TripTime,
			Trips:          r.trips,
		})
	}
	return specs
}
