// Package camera keeps the overlay's view state synchronized with the
// host map camera. Camera events can arrive far faster than the frame
// rate during a gesture, so the bridge coalesces them into at most one
// overlay push per frame.
package camera

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"

	"github.com/yairtitelboim/Maps-sub002/internal/core"
	"github.com/yairtitelboim/Maps-sub002/internal/events"
	"github.com/yairtitelboim/Maps-sub002/internal/frameloop"
)

// gestureKinds are the host events that carry a camera change worth
// forwarding. Idle is deliberately absent, the last render already
// carried the settled view.
var gestureKinds = []events.Kind{
	events.KindRender,
	events.KindMoveStart,
	events.KindZoomStart,
	events.KindPitchStart,
	events.KindRotateStart,
}

// Bridge subscribes to camera events and forwards the most recent view
// to the push callback, at most once per frame. It is safe to Start
// and Stop repeatedly across attach/detach cycles.
type Bridge struct {
	loop *frameloop.Loop
	bus  *events.Bus
	push func(core.ViewState)
	log  zerolog.Logger

	received metric.Int64Counter
	pushed   metric.Int64Counter

	mu          sync.Mutex
	latest      core.ViewState
	scheduled   bool
	active      bool
	unsubscribe func()
}

func NewBridge(log zerolog.Logger, loop *frameloop.Loop, bus *events.Bus, push func(core.ViewState)) (*Bridge, error) {
	received, err := meter().Int64Counter("camera.events.received",
		metric.WithDescription("Camera events observed by the bridge"))
	if err != nil {
		return nil, err
	}
	pushed, err := meter().Int64Counter("camera.pushes",
		metric.WithDescription("Coalesced camera pushes forwarded to the overlay"))
	if err != nil {
		return nil, err
	}

	return &Bridge{
		loop:     loop,
		bus:      bus,
		push:     push,
		log:      log.With().Str("component", "camera").Logger(),
		received: received,
		pushed:   pushed,
	}, nil
}

// Start begins forwarding camera events. Calling Start on a running
// bridge is a no-op.
func (b *Bridge) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active {
		return
	}
	b.active = true
	b.unsubscribe = b.bus.SubscribeMany(gestureKinds, b.onEvent)
	b.log.Debug().Msg("camera bridge started")
}

// Stop unsubscribes and discards any pending push.
func (b *Bridge) Stop() {
	b.mu.Lock()
	unsub := b.unsubscribe
	b.unsubscribe = nil
	b.active = false
	b.scheduled = false
	b.mu.Unlock()

	if unsub != nil {
		unsub()
		b.log.Debug().Msg("camera bridge stopped")
	}
}

func (b *Bridge) onEvent(e events.Event) error {
	b.received.Add(context.Background(), 1)

	b.mu.Lock()
	b.latest = e.View
	if b.scheduled || !b.active {
		b.mu.Unlock()
		return nil
	}
	b.scheduled = true
	b.mu.Unlock()

	// flush on the next frame tick so every event inside one frame
	// interval collapses into a single push
	posted := b.loop.Post(func() {
		b.loop.RequestFrame(func(time.Time) { b.flush() })
	})
	if !posted {
		// loop mailbox full, re-arm so the next event retries
		b.mu.Lock()
		b.scheduled = false
		b.mu.Unlock()
		b.log.Warn().Msg("frame loop mailbox full, camera push dropped")
	}
	return nil
}

// flush runs on a frame tick and pushes the latest view exactly once
// for however many events arrived since the last frame.
func (b *Bridge) flush() {
	b.mu.Lock()
	if !b.scheduled || !b.active {
		b.mu.Unlock()
		return
	}
	b.scheduled = false
	view := b.latest
	b.mu.Unlock()

	b.pushed.Add(context.Background(), 1)
	b.push(view)
}
