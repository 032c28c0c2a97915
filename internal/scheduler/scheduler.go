// Package scheduler spreads animation callback registration over time.
// Registering many frame callbacks in one burst causes a visible hitch,
// so work is drained in small staggered batches on the frame loop.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"

	"github.com/yairtitelboim/Maps-sub002/internal/frameloop"
	"github.com/yairtitelboim/Maps-sub002/internal/queue"
)

// Priority orders tasks across drain cycles. Within one priority tasks
// run in enqueue order.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	numPriorities
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// Task is one unit of deferred work. Fn runs on the frame loop
// goroutine.
type Task struct {
	Name     string
	Priority Priority
	Fn       func()
}

// Config tunes the drain cadence. All fields can be changed at runtime
// through SetConfig.
type Config struct {
	// BatchSize is how many tasks start per drain cycle.
	BatchSize int
	// BatchDelay separates consecutive drain cycles.
	BatchDelay time.Duration
	// StaggerDelay separates task starts inside one cycle.
	StaggerDelay time.Duration
}

func (c Config) normalized() Config {
	if c.BatchSize < 1 {
		c.BatchSize = 1
	}
	if c.BatchDelay < 0 {
		c.BatchDelay = 0
	}
	if c.StaggerDelay < 0 {
		c.StaggerDelay = 0
	}
	return c
}

// Scheduler drains prioritized tasks in staggered batches. Enqueue and
// Clear are safe from any goroutine; task functions always execute on
// the frame loop.
type Scheduler struct {
	log  zerolog.Logger
	loop *frameloop.Loop

	// degraded, when set, sheds low-priority tasks while it returns
	// true. Wired to the performance monitor.
	degraded func() bool

	executed metric.Int64Counter
	panicked metric.Int64Counter
	shed     metric.Int64Counter

	queues [numPriorities]*queue.Queue[Task]

	mu       sync.Mutex
	cfg      Config
	draining bool
	timers   map[int]func()
	nextTmr  int
}

type Option func(*Scheduler)

// WithDegraded wires the shed predicate, typically monitor.Degraded.
func WithDegraded(fn func() bool) Option {
	return func(s *Scheduler) { s.degraded = fn }
}

func New(log zerolog.Logger, loop *frameloop.Loop, cfg Config, opts ...Option) (*Scheduler, error) {
	executed, err := meter().Int64Counter("scheduler.tasks.executed",
		metric.WithDescription("Tasks run to completion"))
	if err != nil {
		return nil, err
	}
	panicked, err := meter().Int64Counter("scheduler.tasks.panicked",
		metric.WithDescription("Tasks that panicked and were isolated"))
	if err != nil {
		return nil, err
	}
	shed, err := meter().Int64Counter("scheduler.tasks.shed",
		metric.WithDescription("Low-priority tasks dropped while degraded"))
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		log:      log.With().Str("component", "scheduler").Logger(),
		loop:     loop,
		cfg:      cfg.normalized(),
		executed: executed,
		panicked: panicked,
		shed:     shed,
		timers:   make(map[int]func()),
	}
	for i := range s.queues {
		s.queues[i] = queue.New[Task]()
	}
	for _, opt := range opts {
		opt(s)
	}

	_, err = meter().Int64ObservableGauge("scheduler.queue.size",
		metric.WithDescription("Tasks waiting to be drained"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(s.Len()))
			return nil
		}))
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Len returns the number of tasks waiting across all priorities.
func (s *Scheduler) Len() int {
	n := 0
	for _, q := range s.queues {
		n += q.Len()
	}
	return n
}

// Enqueue adds a task and starts a drain cycle if none is running.
func (s *Scheduler) Enqueue(t Task) {
	p := t.Priority
	if p < PriorityLow || p >= numPriorities {
		p = PriorityNormal
		t.Priority = p
	}
	s.queues[p].Push(t)

	s.mu.Lock()
	start := !s.draining
	if start {
		s.draining = true
	}
	s.mu.Unlock()

	if start {
		if !s.loop.Post(s.drain) {
			s.mu.Lock()
			s.draining = false
			s.mu.Unlock()
			s.log.Error().Str("task", t.Name).Msg("frame loop mailbox full, drain not started")
		}
	}
}

// Clear drops all waiting tasks and cancels scheduled drain timers.
// Tasks already handed to the loop may still run.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	cancels := make([]func(), 0, len(s.timers))
	for id, cancel := range s.timers {
		cancels = append(cancels, cancel)
		delete(s.timers, id)
	}
	s.draining = false
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	dropped := 0
	for _, q := range s.queues {
		dropped += q.Len()
		q.Clear()
	}
	if dropped > 0 {
		s.log.Debug().Int("dropped", dropped).Msg("scheduler cleared")
	}
}

// SetConfig replaces the drain cadence. Takes effect on the next batch.
func (s *Scheduler) SetConfig(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg.normalized()
	s.mu.Unlock()
}

func (s *Scheduler) config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// popBatch takes up to n tasks, highest priority first, FIFO within a
// priority. Low-priority tasks are shed instead of popped while the
// degraded predicate holds.
func (s *Scheduler) popBatch(n int) []Task {
	if s.degraded != nil && s.degraded() {
		if dropped := s.queues[PriorityLow].Len(); dropped > 0 {
			s.queues[PriorityLow].Clear()
			s.shed.Add(context.Background(), int64(dropped))
			s.log.Warn().Int("dropped", dropped).Msg("degraded, shedding low-priority tasks")
		}
	}

	batch := make([]Task, 0, n)
	for p := numPriorities - 1; p >= PriorityLow; p-- {
		if len(batch) == n {
			break
		}
		batch = append(batch, s.queues[p].PopBatch(n-len(batch))...)
	}
	return batch
}

// drain runs on the frame loop. It starts one batch, staggering task
// starts, then reschedules itself after the batch delay while work
// remains.
func (s *Scheduler) drain() {
	cfg := s.config()

	batch := s.popBatch(cfg.BatchSize)
	if len(batch) == 0 {
		s.mu.Lock()
		s.draining = false
		s.mu.Unlock()
		return
	}

	for i, t := range batch {
		delay := time.Duration(i) * cfg.StaggerDelay
		if delay == 0 {
			// run in place to keep enqueue order exact
			s.runTask(t)
			continue
		}
		s.scheduleAfter(delay, func(t Task) func() {
			return func() { s.runTask(t) }
		}(t))
	}

	// the empty check and the draining flag flip must be one atomic
	// step, or a concurrent Enqueue can strand its task
	s.mu.Lock()
	remaining := s.Len()
	if remaining == 0 {
		s.draining = false
	}
	s.mu.Unlock()

	if remaining > 0 {
		delay := cfg.BatchDelay + time.Duration(len(batch)-1)*cfg.StaggerDelay
		s.scheduleAfter(delay, s.drain)
	}
}

// scheduleAfter wraps loop.After with cancellation bookkeeping so Clear
// can revoke everything in flight. The id is registered before the
// timer starts so a zero delay cannot observe itself missing.
func (s *Scheduler) scheduleAfter(d time.Duration, fn func()) {
	s.mu.Lock()
	id := s.nextTmr
	s.nextTmr++
	s.timers[id] = func() {}
	s.mu.Unlock()

	cancel := s.loop.After(d, func() {
		s.mu.Lock()
		_, live := s.timers[id]
		delete(s.timers, id)
		s.mu.Unlock()
		if live {
			fn()
		}
	})

	s.mu.Lock()
	if _, live := s.timers[id]; live {
		s.timers[id] = cancel
	} else {
		// Clear ran in between
		cancel()
	}
	s.mu.Unlock()
}

// runTask executes one task with panic isolation. One misbehaving
// animation callback must not take down the frame loop.
func (s *Scheduler) runTask(t Task) {
	defer func() {
		if r := recover(); r != nil {
			s.panicked.Add(context.Background(), 1)
			s.log.Error().
				Str("task", t.Name).
				Str("priority", t.Priority.String()).
				Any("panic", r).
				Msg("task panicked")
		}
	}()

	t.Fn()
	s.executed.Add(context.Background(), 1)
}
