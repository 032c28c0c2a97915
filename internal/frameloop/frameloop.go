// Package frameloop provides the single-threaded cooperative scheduling
// primitive the animation core runs on. One goroutine owns the loop; frame
// callbacks, timers, and posted work all execute on it, so components
// scheduled here share state without locking.
package frameloop

import (
	"sync"
	"time"

	"github.com/yairtitelboim/Maps-sub002/internal/channel"
)

// FrameFunc is a callback invoked on a frame tick with the tick time.
type FrameFunc func(now time.Time)

// FrameRequest is a one-shot frame callback registration. Cancel is only
// safe from code already running on the loop.
type FrameRequest struct {
	fn        FrameFunc
	cancelled bool
}

// Cancel prevents the callback from running if it has not run yet.
func (r *FrameRequest) Cancel() {
	r.cancelled = true
}

// Loop drives frame ticks at a fixed interval and executes posted work
// between ticks. All callbacks run on the loop goroutine.
type Loop struct {
	interval time.Duration
	mailbox  channel.Channel[func()]

	// loop-confined
	pending []*FrameRequest

	mu        sync.Mutex
	isRunning bool
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// New creates a loop ticking at the given interval.
func New(interval time.Duration) *Loop {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &Loop{
		interval: interval,
		mailbox:  channel.New[func()](1024),
	}
}

// Start launches the loop goroutine. Calling Start on a running loop is a
// no-op.
func (l *Loop) Start() {
	l.mu.Lock()
	if l.isRunning {
		l.mu.Unlock()
		return
	}
	l.isRunning = true
	l.stopChan = make(chan struct{})
	l.doneChan = make(chan struct{})
	stop := l.stopChan
	done := l.doneChan
	l.mu.Unlock()

	go l.run(stop, done)
}

// Stop halts the loop and waits for the goroutine to exit. Pending frame
// requests are discarded.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.isRunning {
		l.mu.Unlock()
		return
	}
	l.isRunning = false
	close(l.stopChan)
	done := l.doneChan
	l.mu.Unlock()

	<-done
}

func (l *Loop) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			l.pending = nil
			return
		case fn := <-l.mailbox.Receive():
			fn()
		case now := <-ticker.C:
			l.tick(now)
		}
	}
}

// tick runs the frame requests registered before this tick, in
// registration order. Requests registered during the tick run next frame.
func (l *Loop) tick(now time.Time) {
	requests := l.pending
	l.pending = nil
	for _, r := range requests {
		if r.cancelled {
			continue
		}
		r.fn(now)
	}
}

// Post queues fn to run on the loop goroutine as soon as possible,
// independent of frame ticks. Posts from a full mailbox are dropped so the
// caller never blocks; the capacity is far above any realistic burst.
func (l *Loop) Post(fn func()) bool {
	return l.mailbox.TrySend(fn)
}

// RequestFrame registers fn to run on the next frame tick. Must be called
// from the loop goroutine; use Post to get there.
func (l *Loop) RequestFrame(fn FrameFunc) *FrameRequest {
	r := &FrameRequest{fn: fn}
	l.pending = append(l.pending, r)
	return r
}

// After schedules fn to run on the loop goroutine after d. The returned
// cancel function is safe from any goroutine and prevents execution if the
// callback has not started.
func (l *Loop) After(d time.Duration, fn func()) (cancel func()) {
	var mu sync.Mutex
	cancelled := false
	var timer *time.Timer

	mu.Lock()
	timer = time.AfterFunc(d, func() {
		posted := l.Post(func() {
			mu.Lock()
			skip := cancelled
			mu.Unlock()
			if !skip {
				fn()
			}
		})
		if posted {
			return
		}
		// mailbox full; retry next interval rather than strand the
		// continuation
		mu.Lock()
		if !cancelled {
			timer.Reset(l.interval)
		}
		mu.Unlock()
	})
	mu.Unlock()

	return func() {
		mu.Lock()
		cancelled = true
		mu.Unlock()
		timer.Stop()
	}
}

// Interval returns the loop's tick interval.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

// IsRunning returns whether the loop goroutine is active.
func (l *Loop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isRunning
}
