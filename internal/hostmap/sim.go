package hostmap

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yairtitelboim/Maps-sub002/internal/core"
	"github.com/yairtitelboim/Maps-sub002/internal/events"
)

// Sim is an in-process host map used by the simulator binary and the
// tests. It mimics the engine behavior the overlay has to survive:
// asynchronous readiness, camera gestures published as events, failure
// injection on overlay creation, and handles silently invalidated by a
// style reload.
type Sim struct {
	log zerolog.Logger
	bus *events.Bus

	mu       sync.Mutex
	ready    bool
	readyFns map[int]func()
	nextFn   int

	view     core.ViewState
	overlays map[OverlayID]Props
	nextID   int

	failAdds int
}

type SimOption func(*Sim)

// WithInitialView sets the camera state the sim starts with.
func WithInitialView(view core.ViewState) SimOption {
	return func(s *Sim) { s.view = view }
}

// WithReadyAfter marks the sim ready on a timer, exercising the
// attach-before-ready path.
func WithReadyAfter(d time.Duration) SimOption {
	return func(s *Sim) {
		time.AfterFunc(d, s.MarkReady)
	}
}

func NewSim(log zerolog.Logger, bus *events.Bus, opts ...SimOption) *Sim {
	s := &Sim{
		log:      log.With().Str("component", "hostmap").Logger(),
		bus:      bus,
		readyFns: make(map[int]func()),
		overlays: make(map[OverlayID]Props),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sim) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// MarkReady transitions the sim to ready, fires the pending readiness
// callbacks, and publishes the load events. Calling it twice is a
// no-op.
func (s *Sim) MarkReady() {
	s.mu.Lock()
	if s.ready {
		s.mu.Unlock()
		return
	}
	s.ready = true
	fns := make([]func(), 0, len(s.readyFns))
	for _, fn := range s.readyFns {
		fns = append(fns, fn)
	}
	s.readyFns = make(map[int]func())
	view := s.view
	s.mu.Unlock()

	s.log.Info().Msg("host map ready")
	if s.bus != nil {
		s.bus.Publish(events.Event{Kind: events.KindLoad, View: view})
		s.bus.Publish(events.Event{Kind: events.KindStyleLoad, View: view})
	}
	for _, fn := range fns {
		fn()
	}
}

// MarkReadyQuiet flips the ready flag without firing callbacks or
// events, mimicking a host whose load notification was missed. Only
// polling (or a readiness timeout) discovers this state.
func (s *Sim) MarkReadyQuiet() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
}

func (s *Sim) OnReady(fn func()) (cancel func()) {
	s.mu.Lock()
	if s.ready {
		s.mu.Unlock()
		fn()
		return func() {}
	}
	id := s.nextFn
	s.nextFn++
	s.readyFns[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.readyFns, id)
	}
}

func (s *Sim) Camera() core.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *Sim) AddOverlay(props Props) (OverlayID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return "", ErrNotReady
	}
	if s.failAdds > 0 {
		s.failAdds--
		return "", fmt.Errorf("webgl context creation failed")
	}
	s.nextID++
	id := OverlayID(fmt.Sprintf("overlay-%d", s.nextID))
	s.overlays[id] = props
	s.log.Info().Str("overlay", string(id)).Int("layers", len(props.Layers)).Msg("overlay created")
	return id, nil
}

func (s *Sim) RemoveOverlay(id OverlayID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.overlays[id]; !ok {
		return ErrUnknownOverlay
	}
	delete(s.overlays, id)
	s.log.Info().Str("overlay", string(id)).Msg("overlay removed")
	return nil
}

func (s *Sim) HasOverlay(id OverlayID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.overlays[id]
	return ok
}

func (s *Sim) SetOverlayProps(id OverlayID, props Props) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.overlays[id]; !ok {
		return ErrUnknownOverlay
	}
	s.overlays[id] = props
	return nil
}

// OverlayProps returns the last props pushed for the handle, for
// inspection by the sim console and tests.
func (s *Sim) OverlayProps(id OverlayID) (Props, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.overlays[id]
	return p, ok
}

// FailNextAdds makes the next n AddOverlay calls fail, simulating the
// engine rejecting context creation.
func (s *Sim) FailNextAdds(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAdds = n
}

// InvalidateOverlays drops every handle without notifying holders, the
// way a style reload discards attached overlays.
func (s *Sim) InvalidateOverlays() {
	s.mu.Lock()
	n := len(s.overlays)
	s.overlays = make(map[OverlayID]Props)
	s.mu.Unlock()
	s.log.Warn().Int("dropped", n).Msg("style reload invalidated overlay handles")
}

// StartGesture publishes the interaction-start event for a camera
// gesture. kind must be one of the *Start event kinds.
func (s *Sim) StartGesture(kind events.Kind) {
	if s.bus != nil {
		s.bus.Publish(events.Event{Kind: kind, View: s.Camera()})
	}
}

// SetCamera moves the camera one step and publishes a render event
// with the new view, the way the engine repaints during a gesture.
func (s *Sim) SetCamera(view core.ViewState) {
	s.mu.Lock()
	s.view = view
	s.mu.Unlock()
	if s.bus != nil {
		s.bus.Publish(events.Event{Kind: events.KindRender, View: view})
	}
}

// EndGesture publishes the idle event once the camera settles.
func (s *Sim) EndGesture() {
	if s.bus != nil {
		s.bus.Publish(events.Event{Kind: events.KindIdle, View: s.Camera()})
	}
}

var _ HostMap = (*Sim)(nil)
