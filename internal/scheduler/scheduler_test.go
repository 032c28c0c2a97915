package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairtitelboim/Maps-sub002/internal/frameloop"
)

type runRecorder struct {
	mu    sync.Mutex
	names []string
	times []time.Time
}

func (r *runRecorder) task(name string, priority Priority) Task {
	return Task{Name: name, Priority: priority, Fn: func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.names = append(r.names, name)
		r.times = append(r.times, time.Now())
	}}
}

func (r *runRecorder) ran() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *runRecorder) startGap(i, j int) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.times[j].Sub(r.times[i])
}

func newTestScheduler(t *testing.T, cfg Config, opts ...Option) (*Scheduler, *frameloop.Loop) {
	t.Helper()
	loop := frameloop.New(2 * time.Millisecond)
	s, err := New(zerolog.Nop(), loop, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(loop.Stop)
	return s, loop
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	require.True(t, cond(), "condition not met within %v", timeout)
}

func TestScheduler_BatchesOfThree(t *testing.T) {
	rec := &runRecorder{}
	s, loop := newTestScheduler(t, Config{
		BatchSize:    3,
		BatchDelay:   60 * time.Millisecond,
		StaggerDelay: 5 * time.Millisecond,
	})
	loop.Start()

	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		s.Enqueue(rec.task(name, PriorityNormal))
	}

	waitFor(t, 2*time.Second, func() bool { return len(rec.ran()) == 7 })

	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g"}, rec.ran())

	// batches of 3, 3, 1: the fourth task starts a batch delay after
	// the first, the seventh two batch delays after
	assert.GreaterOrEqual(t, rec.startGap(0, 3), 50*time.Millisecond)
	assert.GreaterOrEqual(t, rec.startGap(3, 6), 50*time.Millisecond)
	// tasks inside one batch start close together
	assert.Less(t, rec.startGap(0, 2), 50*time.Millisecond)
}

func TestScheduler_StaggerWithinBatch(t *testing.T) {
	rec := &runRecorder{}
	s, loop := newTestScheduler(t, Config{
		BatchSize:    3,
		BatchDelay:   20 * time.Millisecond,
		StaggerDelay: 30 * time.Millisecond,
	})
	loop.Start()

	s.Enqueue(rec.task("a", PriorityNormal))
	s.Enqueue(rec.task("b", PriorityNormal))
	s.Enqueue(rec.task("c", PriorityNormal))

	waitFor(t, 2*time.Second, func() bool { return len(rec.ran()) == 3 })
	assert.GreaterOrEqual(t, rec.startGap(0, 1), 20*time.Millisecond)
	assert.GreaterOrEqual(t, rec.startGap(1, 2), 20*time.Millisecond)
}

func TestScheduler_PriorityOrder(t *testing.T) {
	rec := &runRecorder{}
	// enqueue everything before the loop starts so one drain sees the
	// full queue
	s, loop := newTestScheduler(t, Config{BatchSize: 10})

	s.Enqueue(rec.task("low-1", PriorityLow))
	s.Enqueue(rec.task("normal-1", PriorityNormal))
	s.Enqueue(rec.task("high-1", PriorityHigh))
	s.Enqueue(rec.task("low-2", PriorityLow))
	s.Enqueue(rec.task("high-2", PriorityHigh))

	loop.Start()
	waitFor(t, 2*time.Second, func() bool { return len(rec.ran()) == 5 })

	assert.Equal(t, []string{"high-1", "high-2", "normal-1", "low-1", "low-2"}, rec.ran())
}

func TestScheduler_PanicIsolation(t *testing.T) {
	rec := &runRecorder{}
	s, loop := newTestScheduler(t, Config{BatchSize: 3})

	s.Enqueue(rec.task("before", PriorityNormal))
	s.Enqueue(Task{Name: "boom", Priority: PriorityNormal, Fn: func() {
		panic("animation callback exploded")
	}})
	s.Enqueue(rec.task("after", PriorityNormal))

	loop.Start()
	waitFor(t, 2*time.Second, func() bool { return len(rec.ran()) == 2 })

	assert.Equal(t, []string{"before", "after"}, rec.ran())
	assert.True(t, loop.IsRunning(), "a panicking task must not kill the loop")
}

func TestScheduler_Clear(t *testing.T) {
	rec := &runRecorder{}
	s, loop := newTestScheduler(t, Config{
		BatchSize:  1,
		BatchDelay: 100 * time.Millisecond,
	})
	loop.Start()

	for _, name := range []string{"a", "b", "c", "d"} {
		s.Enqueue(rec.task(name, PriorityNormal))
	}
	waitFor(t, 2*time.Second, func() bool { return len(rec.ran()) >= 1 })
	s.Clear()

	time.Sleep(300 * time.Millisecond)
	assert.Less(t, len(rec.ran()), 4, "cleared tasks must not run")
	assert.Zero(t, s.Len())
}

func TestScheduler_EnqueueAfterClear(t *testing.T) {
	rec := &runRecorder{}
	s, loop := newTestScheduler(t, Config{BatchSize: 2})
	loop.Start()

	s.Enqueue(rec.task("a", PriorityNormal))
	waitFor(t, 2*time.Second, func() bool { return len(rec.ran()) == 1 })
	s.Clear()

	s.Enqueue(rec.task("b", PriorityNormal))
	waitFor(t, 2*time.Second, func() bool { return len(rec.ran()) == 2 })
	assert.Equal(t, []string{"a", "b"}, rec.ran())
}

func TestScheduler_DegradedShedsLowPriority(t *testing.T) {
	rec := &runRecorder{}
	s, loop := newTestScheduler(t, Config{BatchSize: 10},
		WithDegraded(func() bool { return true }))

	s.Enqueue(rec.task("low", PriorityLow))
	s.Enqueue(rec.task("high", PriorityHigh))
	s.Enqueue(rec.task("normal", PriorityNormal))

	loop.Start()
	waitFor(t, 2*time.Second, func() bool { return len(rec.ran()) == 2 })

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"high", "normal"}, rec.ran())
	assert.Zero(t, s.Len())
}

func TestScheduler_ZeroBatchSizeNormalized(t *testing.T) {
	rec := &runRecorder{}
	s, loop := newTestScheduler(t, Config{BatchSize: 0})
	loop.Start()

	s.Enqueue(rec.task("a", PriorityNormal))
	s.Enqueue(rec.task("b", PriorityNormal))

	waitFor(t, 2*time.Second, func() bool { return len(rec.ran()) == 2 })
	assert.Equal(t, []string{"a", "b"}, rec.ran())
}
