// Package overlay owns the lifecycle of the single shared overlay
// attached to the host map: readiness waits, creation, per-frame
// animation pushes, visibility gating, and teardown. All state lives
// on the frame loop goroutine; the public methods post there.
package overlay

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yairtitelboim/Maps-sub002/internal/camera"
	"github.com/yairtitelboim/Maps-sub002/internal/clock"
	"github.com/yairtitelboim/Maps-sub002/internal/core"
	"github.com/yairtitelboim/Maps-sub002/internal/events"
	"github.com/yairtitelboim/Maps-sub002/internal/frameloop"
	"github.com/yairtitelboim/Maps-sub002/internal/hostmap"
	"github.com/yairtitelboim/Maps-sub002/internal/layer"
	"github.com/yairtitelboim/Maps-sub002/internal/monitor"
	"github.com/yairtitelboim/Maps-sub002/internal/scheduler"
)

// State is the overlay lifecycle state. Transitions only happen on the
// frame loop goroutine.
type State int

const (
	// StateIdle means no overlay exists and nothing is pending.
	StateIdle State = iota
	// StateWaitingReady means an attach is pending on host readiness.
	StateWaitingReady
	// StateCreating means the overlay handle is being created.
	StateCreating
	// StateAttached means the overlay exists and receives updates.
	StateAttached
	// StateFailed means the last creation attempt failed. A visibility
	// change or explicit Attach retries from here.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaitingReady:
		return "waiting-ready"
	case StateCreating:
		return "creating"
	case StateAttached:
		return "attached"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// CleanupStatus says why a lifecycle ended.
type CleanupStatus string

const (
	// StatusStopped is a deliberate detach or an attach cancelled
	// before the overlay existed.
	StatusStopped CleanupStatus = "stopped"
	// StatusFailed means overlay creation raised. The manager resets so
	// the next visibility event retries.
	StatusFailed CleanupStatus = "failed"
)

// CleanupDetail accompanies the cleanup notification. Fired at most
// once per lifecycle.
type CleanupDetail struct {
	Status CleanupStatus
	// Reason and Message carry diagnostics for failed or aborted
	// lifecycles; both empty on a plain stop.
	Reason  string
	Message string
	// DegradedStart records that the lifecycle attached only after the
	// readiness timeout expired.
	DegradedStart bool
}

// Dependencies holds all collaborators for the overlay manager.
type Dependencies struct {
	Log      zerolog.Logger
	Loop     *frameloop.Loop
	Host     hostmap.HostMap
	Bus      *events.Bus
	Registry *layer.Registry
	Sched    *scheduler.Scheduler
	Monitor  *monitor.Service
	Pulse    *clock.PulseClock
	Trip     *clock.TripClock
}

// Config tunes lifecycle behavior.
type Config struct {
	// ReadyTimeout bounds the wait for host readiness. When it expires
	// the attach proceeds anyway and the lifecycle is marked degraded.
	ReadyTimeout time.Duration
}

// Manager drives the overlay state machine.
type Manager struct {
	deps Dependencies
	cfg  Config

	bridge *camera.Bridge

	// snapshot fields, readable from any goroutine; written only on
	// the frame loop
	mu            sync.RWMutex
	state         State
	overlayID     hostmap.OverlayID
	degradedStart bool

	// everything below is loop-confined
	flags         layer.VisibilityFlags
	frameReq      *frameloop.FrameRequest
	cancelReady   func()
	cancelTimeout func()
	cleanupFired  bool
	onCleanup     []func(CleanupDetail)
}

func NewManager(deps Dependencies, cfg Config) (*Manager, error) {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 2 * time.Second
	}
	m := &Manager{
		deps: deps,
		cfg:  cfg,
	}

	bridge, err := camera.NewBridge(deps.Log, deps.Loop, deps.Bus, m.onCameraView)
	if err != nil {
		return nil, err
	}
	m.bridge = bridge
	return m, nil
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	old := m.state
	m.state = s
	m.mu.Unlock()
	if old != s {
		m.deps.Log.Debug().Str("from", old.String()).Str("to", s.String()).Msg("overlay state")
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// OverlayID returns the live handle, empty when not attached.
func (m *Manager) OverlayID() hostmap.OverlayID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.overlayID
}

// DegradedStart reports whether the current lifecycle attached after
// the readiness timeout.
func (m *Manager) DegradedStart() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.degradedStart
}

// OnCleanup registers a cleanup listener. Not safe after the loop
// starts driving the manager.
func (m *Manager) OnCleanup(fn func(CleanupDetail)) {
	m.onCleanup = append(m.onCleanup, fn)
}

// post runs fn on the frame loop.
func (m *Manager) post(fn func()) {
	if !m.deps.Loop.Post(fn) {
		m.deps.Log.Error().Msg("frame loop mailbox full, overlay operation dropped")
	}
}

// SetVisible toggles one animation. Making any animation visible from
// the idle or failed state starts an attach; hiding an animation
// discards its clock state in the same step, so every show restarts
// from the initial phase regardless of what stayed visible meanwhile.
func (m *Manager) SetVisible(kind core.LayerKind, visible bool) {
	m.post(func() {
		switch kind {
		case core.KindPulseCircle:
			if m.flags.Pulse && !visible {
				m.deps.Pulse.Reset()
			}
			m.flags.Pulse = visible
		case core.KindFlowTrips:
			if m.flags.Flow && !visible {
				m.deps.Trip.Reset()
			}
			m.flags.Flow = visible
		default:
			m.deps.Log.Warn().Str("kind", string(kind)).Msg("unknown layer kind")
			return
		}
		m.applyVisibility()
	})
}

// Attach requests the overlay explicitly. Redundant calls on a healthy
// attachment are no-ops; a stale handle is recreated silently.
func (m *Manager) Attach() {
	m.post(m.ensureAttached)
}

// Detach tears the overlay down and ends the lifecycle.
func (m *Manager) Detach() {
	m.post(func() { m.detach(StatusStopped) })
}

// Update pushes the current composition immediately. No-op while not
// attached.
func (m *Manager) Update() {
	m.post(func() {
		if m.State() != StateAttached {
			return
		}
		m.pushProps(m.deps.Host.Camera())
	})
}

// Visible returns the current flags. Loop-confined; exposed for the
// frame callback and tests driven through the loop.
func (m *Manager) Visible() layer.VisibilityFlags {
	return m.flags
}

// applyVisibility reconciles lifecycle state with the flags.
func (m *Manager) applyVisibility() {
	if m.flags.Any() {
		m.ensureAttached()
		if m.State() == StateAttached {
			// reflect the flag change without waiting for the next frame
			m.pushProps(m.deps.Host.Camera())
		}
		return
	}

	switch m.State() {
	case StateWaitingReady, StateCreating:
		// nothing visible anymore, the pending attach is pointless
		m.cancelPending()
		m.setState(StateIdle)
		m.fireCleanup(CleanupDetail{
			Status: StatusStopped,
			Reason: "attach-aborted",
		})
	case StateAttached:
		m.stopFrames()
		m.resetClocks()
		// push the empty composition so the host drops the layers
		m.pushProps(m.deps.Host.Camera())
	}
}

func (m *Manager) ensureAttached() {
	switch m.State() {
	case StateAttached:
		if m.deps.Host.HasOverlay(m.OverlayID()) {
			m.startFrames()
			return
		}
		// handle went stale underneath us, recreate without ceremony
		m.deps.Log.Warn().Msg("overlay handle stale, recreating")
		m.stopFrames()
		m.bridge.Stop()
		m.setOverlayID("")
		m.create()
	case StateWaitingReady, StateCreating:
		// already in flight
	case StateIdle, StateFailed:
		m.startAttach()
	}
}

func (m *Manager) startAttach() {
	m.cleanupFired = false
	m.mu.Lock()
	m.degradedStart = false
	m.mu.Unlock()

	if m.deps.Host.Ready() {
		m.create()
		return
	}

	m.setState(StateWaitingReady)
	m.deps.Log.Info().Dur("timeout", m.cfg.ReadyTimeout).Msg("waiting for host map readiness")

	m.cancelReady = m.deps.Host.OnReady(func() {
		m.post(func() {
			if m.State() != StateWaitingReady {
				return
			}
			m.cancelPending()
			m.create()
		})
	})

	m.cancelTimeout = m.deps.Loop.After(m.cfg.ReadyTimeout, func() {
		if m.State() != StateWaitingReady {
			return
		}
		m.deps.Log.Warn().Msg("host map readiness timeout, attaching anyway")
		m.mu.Lock()
		m.degradedStart = true
		m.mu.Unlock()
		m.cancelPending()
		m.create()
	})
}

func (m *Manager) cancelPending() {
	if m.cancelReady != nil {
		m.cancelReady()
		m.cancelReady = nil
	}
	if m.cancelTimeout != nil {
		m.cancelTimeout()
		m.cancelTimeout = nil
	}
}

func (m *Manager) create() {
	m.setState(StateCreating)

	props := hostmap.Props{
		Layers: m.compose(),
		View:   m.deps.Host.Camera(),
	}
	id, err := m.deps.Host.AddOverlay(props)
	if err != nil {
		m.setOverlayID("")
		m.setState(StateFailed)
		m.deps.Log.Error().Err(err).Msg("overlay creation failed")
		m.fireCleanup(CleanupDetail{
			Status:  StatusFailed,
			Reason:  "attach-failure",
			Message: err.Error(),
		})
		return
	}

	m.setOverlayID(id)
	m.setState(StateAttached)
	m.deps.Log.Info().Str("overlay", string(id)).Bool("degradedStart", m.DegradedStart()).Msg("overlay attached")

	m.bridge.Start()
	m.startFrames()
}

func (m *Manager) setOverlayID(id hostmap.OverlayID) {
	m.mu.Lock()
	m.overlayID = id
	m.mu.Unlock()
}

// startFrames schedules animation startup through the scheduler so a
// burst of visibility toggles drains in staggered batches.
func (m *Manager) startFrames() {
	if !m.flags.Any() || m.frameReq != nil {
		return
	}
	m.deps.Sched.Enqueue(scheduler.Task{
		Name:     "overlay.animate",
		Priority: scheduler.PriorityHigh,
		Fn:       m.beginFrameLoop,
	})
}

// beginFrameLoop runs on the frame loop via the scheduler.
func (m *Manager) beginFrameLoop() {
	if m.State() != StateAttached || !m.flags.Any() || m.frameReq != nil {
		return
	}
	m.frameReq = m.deps.Loop.RequestFrame(m.onFrame)
	if m.deps.Monitor != nil {
		m.deps.Monitor.SetActive(true)
	}
}

func (m *Manager) stopFrames() {
	if m.frameReq != nil {
		m.frameReq.Cancel()
		m.frameReq = nil
	}
	if m.deps.Monitor != nil {
		m.deps.Monitor.SetActive(false)
	}
}

func (m *Manager) resetClocks() {
	m.deps.Pulse.Reset()
	m.deps.Trip.Reset()
}

// onFrame advances the clocks and pushes the new composition, then
// re-registers for the next frame while anything stays visible.
func (m *Manager) onFrame(now time.Time) {
	m.frameReq = nil

	if m.State() != StateAttached || !m.flags.Any() {
		return
	}

	// only visible animations accumulate time; hidden clocks were reset
	// when their flag dropped and stay at the initial phase
	if m.flags.Pulse {
		m.deps.Pulse.Tick(now)
	}
	if m.flags.Flow {
		m.deps.Trip.Tick(now)
	}

	m.pushProps(m.deps.Host.Camera())
	if m.deps.Monitor != nil {
		m.deps.Monitor.CountFrame()
	}

	m.frameReq = m.deps.Loop.RequestFrame(m.onFrame)
}

// onCameraView is the coalesced camera push from the bridge. It runs
// on the frame loop.
func (m *Manager) onCameraView(view core.ViewState) {
	if m.State() != StateAttached {
		return
	}
	m.pushProps(view)
}

func (m *Manager) compose() []layer.AnimatedLayerSpec {
	return m.deps.Registry.Compose(m.flags, layer.ClockStates{
		PulseRadius: m.deps.Pulse.Value(),
		TripTime:    m.deps.Trip.CurrentTime(),
	})
}

func (m *Manager) pushProps(view core.ViewState) {
	id := m.OverlayID()
	err := m.deps.Host.SetOverlayProps(id, hostmap.Props{
		Layers: m.compose(),
		View:   view,
	})
	if err == nil {
		return
	}
	if errors.Is(err, hostmap.ErrUnknownOverlay) {
		// stale handle, rebuild the attachment without surfacing an
		// error to the caller
		m.deps.Log.Warn().Str("overlay", string(id)).Msg("handle invalid on update, recreating")
		m.stopFrames()
		m.bridge.Stop()
		m.setOverlayID("")
		m.create()
		return
	}
	m.deps.Log.Error().Err(err).Msg("overlay props update failed")
}

func (m *Manager) detach(status CleanupStatus) {
	state := m.State()
	if state == StateIdle {
		return
	}

	m.cancelPending()
	m.bridge.Stop()
	m.stopFrames()
	m.resetClocks()
	m.deps.Sched.Clear()

	if id := m.OverlayID(); id != "" {
		if m.deps.Host.HasOverlay(id) {
			if err := m.deps.Host.RemoveOverlay(id); err != nil {
				m.deps.Log.Error().Err(err).Msg("overlay removal failed")
			}
		}
		m.setOverlayID("")
	}

	m.setState(StateIdle)
	m.fireCleanup(CleanupDetail{Status: status})
}

func (m *Manager) fireCleanup(detail CleanupDetail) {
	if m.cleanupFired {
		return
	}
	m.cleanupFired = true
	detail.DegradedStart = m.DegradedStart()
	m.deps.Log.Info().
		Str("status", string(detail.Status)).
		Str("reason", detail.Reason).
		Bool("degradedStart", detail.DegradedStart).
		Msg("overlay lifecycle ended")
	for _, fn := range m.onCleanup {
		fn(detail)
	}
}
