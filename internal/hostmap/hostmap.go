// Package hostmap defines the contract with the externally owned map
// engine the overlay attaches to. The engine owns the render surface
// and the camera; this package only describes how to talk to it.
package hostmap

import (
	"errors"

	"github.com/yairtitelboim/Maps-sub002/internal/core"
	"github.com/yairtitelboim/Maps-sub002/internal/layer"
)

// OverlayID identifies one overlay handle issued by the host engine.
// The handle can go stale when the engine reloads its style, so
// holders must verify it with HasOverlay before reuse.
type OverlayID string

// Props is the full overlay state pushed to the host on every update.
type Props struct {
	Layers []layer.AnimatedLayerSpec
	View   core.ViewState
}

var (
	// ErrNotReady is returned by AddOverlay before the host finished
	// loading its style.
	ErrNotReady = errors.New("host map not ready")
	// ErrUnknownOverlay is returned for operations on a handle the host
	// no longer tracks.
	ErrUnknownOverlay = errors.New("unknown overlay handle")
)

// HostMap is the surface the overlay lifecycle works against. All
// methods may be called from the frame loop goroutine; implementations
// must be safe against the engine mutating state concurrently.
type HostMap interface {
	// Ready reports whether the host finished loading and can accept
	// overlays.
	Ready() bool

	// OnReady registers fn to run once when the host becomes ready, or
	// immediately if it already is. The returned cancel revokes a
	// pending registration.
	OnReady(fn func()) (cancel func())

	// Camera returns the host's current view state.
	Camera() core.ViewState

	// AddOverlay creates a shared overlay with the given initial props
	// and returns its handle.
	AddOverlay(props Props) (OverlayID, error)

	// RemoveOverlay detaches and destroys the overlay.
	RemoveOverlay(id OverlayID) error

	// HasOverlay reports whether the host still tracks the handle.
	HasOverlay(id OverlayID) bool

	// SetOverlayProps replaces the overlay's layer list and view state.
	SetOverlayProps(id OverlayID, props Props) error
}
