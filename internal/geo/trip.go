package geo

import (
	"math"

	"github.com/yairtitelboim/Maps-sub002/internal/core"
)

// TripConfig controls how route paths are turned into trip particles.
type TripConfig struct {
	// SpeedUnitsPerSecond converts cumulative path distance (mercator
	// meters) into loop-time seconds.
	SpeedUnitsPerSecond float64
	TrailLength         float64
	LoopLength          float64
}

// BuildTrip derives a trip particle from a route. Timestamps grow with
// cumulative path distance at the configured speed and are scaled into
// the loop so every trip completes exactly once per loop cycle.
func BuildTrip(route core.Route, cfg TripConfig) (core.TripParticle, error) {
	if len(route.Path) < 2 {
		return core.TripParticle{}, ErrTooFewPoints
	}

	speed := cfg.SpeedUnitsPerSecond
	if speed <= 0 {
		speed = 1
	}

	timestamps := make([]float64, len(route.Path))
	total := 0.0
	for i := 1; i < len(route.Path); i++ {
		prev, cur := route.Path[i-1], route.Path[i]
		total += math.Hypot(cur.X-prev.X, cur.Y-prev.Y)
		timestamps[i] = total / speed
	}

	// Scale into the loop window so the particle finishes its path within
	// one loop regardless of route length.
	if cfg.LoopLength > 0 && total > 0 {
		duration := timestamps[len(timestamps)-1]
		if duration > cfg.LoopLength {
			scale := cfg.LoopLength / duration
			for i := range timestamps {
				timestamps[i] *= scale
			}
		}
	}

	return core.TripParticle{
		Path:        route.Path,
		Timestamps:  timestamps,
		Color:       route.Color,
		TrailLength: cfg.TrailLength,
	}, nil
}

// BuildTrips derives trip particles for a batch of routes. Entries with
// fewer than two points are skipped, not fatal; the count of skipped
// entries is returned for logging.
func BuildTrips(routes []core.Route, cfg TripConfig) (trips []core.TripParticle, skipped int) {
	trips = make([]core.TripParticle, 0, len(routes))
	for _, r := range routes {
		trip, err := BuildTrip(r, cfg)
		if err != nil {
			skipped++
			continue
		}
		trips = append(trips, trip)
	}
	return trips, skipped
}
