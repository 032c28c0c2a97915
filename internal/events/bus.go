// Package events routes host-map events to subscribed handlers.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yairtitelboim/Maps-sub002/internal/core"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Kind identifies a host-map event.
type Kind string

const (
	KindLoad        Kind = "load"
	KindStyleLoad   Kind = "styleload"
	KindRender      Kind = "render"
	KindMoveStart   Kind = "movestart"
	KindZoomStart   Kind = "zoomstart"
	KindPitchStart  Kind = "pitchstart"
	KindRotateStart Kind = "rotatestart"
	KindIdle        Kind = "idle"
)

// Event is a single host-map notification. View carries the camera
// parameters at the moment the event fired.
type Event struct {
	Kind      Kind
	View      core.ViewState
	Timestamp time.Time
}

// HandlerFunc processes an event.
type HandlerFunc func(Event) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
// Events are dropped, not blocked on, when the queue is full.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type subscription struct {
	id      uint64
	handler HandlerFunc
	buffer  chan Event

	// mu guards closed so a Publish holding a copied subs slice cannot
	// send on a buffer its cancel just closed
	mu     sync.Mutex
	closed bool
}

// enqueue delivers the event to the buffer unless the subscription was
// cancelled. It reports whether the event was accepted.
func (s *subscription) enqueue(e Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.buffer <- e:
		return true
	default:
		return false
	}
}

func (s *subscription) closeBuffer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.buffer)
	}
}

// Bus fans host-map events out to registered handlers.
type Bus struct {
	logger Logger

	// OTEL metrics
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter

	mu     sync.RWMutex
	nextID uint64
	subs   map[Kind][]*subscription
}

// New creates a new Bus with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Bus, error) {
	b := &Bus{
		subs:   make(map[Kind][]*subscription),
		logger: logger,
	}

	// Get meter from global OTel provider (returns no-op if not configured)
	m := meter()

	var err error

	b.queueSize, err = m.Int64ObservableGauge(
		"events.queue.size",
		metric.WithDescription("Current number of events queued per subscription"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			b.mu.RLock()
			defer b.mu.RUnlock()
			for kind, subs := range b.subs {
				for _, s := range subs {
					if s.buffer == nil {
						continue
					}
					o.ObserveInt64(b.queueSize, int64(len(s.buffer)),
						metric.WithAttributes(attribute.String("kind", string(kind))))
				}
			}
			return nil
		},
		b.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	b.processed, err = m.Int64Counter(
		"events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	b.dropped, err = m.Int64Counter(
		"events.dropped",
		metric.WithDescription("Total events dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return b, nil
}

// Subscribe registers a handler for the given event kind and returns a
// cancel function that removes the subscription. Events published after
// cancellation are not delivered to the handler.
func (b *Bus) Subscribe(kind Kind, h HandlerFunc, opts ...Option) func() {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h
	if cfg.logged {
		handler = b.withLogging(kind, handler)
	}

	sub := &subscription{handler: handler}

	if cfg.bufferSize > 0 {
		sub.buffer = make(chan Event, cfg.bufferSize)
		go func() {
			kindAttr := attribute.String("kind", string(kind))
			for e := range sub.buffer {
				sub.handler(e)
				b.processed.Add(context.Background(), 1, metric.WithAttributes(kindAttr))
			}
		}()
	}

	b.mu.Lock()
	b.nextID++
	sub.id = b.nextID
	b.subs[kind] = append(b.subs[kind], sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[kind]
		for i, s := range subs {
			if s.id == sub.id {
				b.subs[kind] = append(subs[:i:i], subs[i+1:]...)
				if s.buffer != nil {
					s.closeBuffer()
				}
				return
			}
		}
	}
}

// SubscribeMany registers the same handler for several event kinds and
// returns a cancel function covering all of them.
func (b *Bus) SubscribeMany(kinds []Kind, h HandlerFunc, opts ...Option) func() {
	cancels := make([]func(), 0, len(kinds))
	for _, k := range kinds {
		cancels = append(cancels, b.Subscribe(k, h, opts...))
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}

// Publish delivers an event to every handler subscribed to its kind.
// Synchronous handlers run inline; buffered ones are enqueued.
func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	b.mu.RLock()
	subs := make([]*subscription, len(b.subs[e.Kind]))
	copy(subs, b.subs[e.Kind])
	b.mu.RUnlock()

	kindAttr := attribute.String("kind", string(e.Kind))
	for _, s := range subs {
		if s.buffer != nil {
			if !s.enqueue(e) {
				b.dropped.Add(context.Background(), 1, metric.WithAttributes(kindAttr))
			}
			continue
		}
		s.handler(e)
		b.processed.Add(context.Background(), 1, metric.WithAttributes(kindAttr))
	}
}

// HasSubscribers returns true if any handler is subscribed to the kind.
func (b *Bus) HasSubscribers(kind Kind) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind]) > 0
}

func (b *Bus) withLogging(kind Kind, h HandlerFunc) HandlerFunc {
	return func(e Event) error {
		start := time.Now()
		b.logger.Debug("handling event", "kind", kind)

		err := h(e)

		if err != nil {
			b.logger.Error("event failed", "kind", kind, "duration", time.Since(start), "error", err)
		} else {
			b.logger.Debug("event complete", "kind", kind, "duration", time.Since(start))
		}

		return err
	}
}
