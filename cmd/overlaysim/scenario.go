package main

import (
	"math"
	"time"

	"github.com/yairtitelboim/Maps-sub002/internal/core"
	"github.com/yairtitelboim/Maps-sub002/internal/events"
	"github.com/yairtitelboim/Maps-sub002/internal/routes"
)

// demoRoutes is a small set of downtown-Boston corridors used when the
// store has no data. Geometry is WGS84 WKT, properties carry the headway
// (seconds between departures along the path).
var demoRoutes = []struct {
	name     string
	color    string
	geometry string
	headway  float64
}{
	{
		name:     "Harbor Loop",
		color:    "#00c8ff",
		geometry: "LINESTRING(-71.0589 42.3601, -71.0520 42.3585, -71.0453 42.3600, -71.0412 42.3655)",
		headway:  120,
	},
	{
		name:     "Back Bay Run",
		color:    "#ff9632",
		geometry: "LINESTRING(-71.0810 42.3495, -71.0755 42.3515, -71.0690 42.3528, -71.0620 42.3550, -71.0589 42.3601)",
		headway:  180,
	},
	{
		name:     "Charles Crossing",
		color:    "#96ff64",
		geometry: "LINESTRING(-71.0712 42.3720, -71.0655 42.3668, -71.0601 42.3625, -71.0589 42.3601)",
		headway:  240,
	},
}

func seedDemoRoutes(store routes.Store) error {
	for _, r := range demoRoutes {
		record, err := routes.FromRoute(r.name, r.color, r.geometry, map[string]any{
			"headway": r.headway,
		})
		if err != nil {
			return err
		}
		if err := store.Save(&record); err != nil {
			return err
		}
	}
	return nil
}

// runDemo walks the overlay through its full lifecycle against the
// simulated host: attach while the host is still loading, show both
// layers, fly the camera (exercising per-frame view coalescing), toggle
// visibility, invalidate the host's overlay handles to force a silent
// recreate, and leave the rest to shutdown.
func runDemo(eng *engine) {
	Logger.Info("Demo: attaching overlay before host is ready")
	eng.mgr.SetVisible(core.KindPulseCircle, true)
	eng.mgr.SetVisible(core.KindFlowTrips, true)

	time.Sleep(1 * time.Second)
	Logger.Info("Demo: overlay state after readiness", "state", eng.mgr.State().String())

	Logger.Info("Demo: camera flight across the harbor")
	flyCamera(eng, 3*time.Second)

	snap := eng.monitor.Snapshot()
	Logger.Info("Demo: frame rate sample", "fps", snap.FPS, "degraded", snap.Degraded)

	Logger.Info("Demo: hiding pulse layer")
	eng.mgr.SetVisible(core.KindPulseCircle, false)
	time.Sleep(1 * time.Second)

	Logger.Info("Demo: invalidating host overlay handles (style reload)")
	eng.sim.InvalidateOverlays()
	flyCamera(eng, 1*time.Second)
	Logger.Info("Demo: overlay state after invalidation", "state", eng.mgr.State().String())

	Logger.Info("Demo: showing pulse layer again")
	eng.mgr.SetVisible(core.KindPulseCircle, true)
	time.Sleep(2 * time.Second)

	Logger.Info("Demo: hiding all layers")
	eng.mgr.SetVisible(core.KindPulseCircle, false)
	eng.mgr.SetVisible(core.KindFlowTrips, false)
	time.Sleep(500 * time.Millisecond)

	Logger.Info("Demo complete")
}

// flyCamera performs a pan gesture along an arc around downtown,
// emitting camera updates far faster than the frame interval so the
// coalescing path is actually exercised.
func flyCamera(eng *engine, dur time.Duration) {
	const step = 5 * time.Millisecond
	steps := int(dur / step)
	if steps < 1 {
		steps = 1
	}

	eng.sim.StartGesture(events.KindMoveStart)
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		eng.sim.SetCamera(core.ViewState{
			Longitude: -71.06 + 0.02*math.Sin(t*math.Pi),
			Latitude:  42.36 + 0.008*t,
			Zoom:      12 + 2*t,
			Bearing:   30 * t,
		})
		time.Sleep(step)
	}
	eng.sim.EndGesture()
}
