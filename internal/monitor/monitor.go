// Package monitor samples the overlay's effective frame rate and
// decides when the system is degraded. Degradation gates optional work
// elsewhere: the scheduler sheds low-priority tasks and the sim console
// reports it.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/yairtitelboim/Maps-sub002/internal/influx"
	"github.com/yairtitelboim/Maps-sub002/internal/logging"
)

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	LogManager *logging.SlogManager
	Influx     *influx.Manager
	Session    string
	// StatusDir, when set, receives a status.json refreshed each sample.
	StatusDir string
}

// Config tunes sampling and the degradation thresholds. Split low and
// recover thresholds give hysteresis so the state does not flap when
// the frame rate hovers at the boundary.
type Config struct {
	// SampleInterval is how often the rate is computed.
	SampleInterval time.Duration
	// LowThreshold marks the system degraded when a sample falls below.
	LowThreshold float64
	// RecoverThreshold clears degradation when a sample reaches it.
	// Must be >= LowThreshold.
	RecoverThreshold float64
}

// Status is one sample of the monitor's view of the world.
type Status struct {
	Time     time.Time `json:"time"`
	FPS      float64   `json:"fps"`
	Degraded bool      `json:"degraded"`
	Frames   uint64    `json:"framesTotal"`
}

// Service counts frames and periodically derives the frame rate.
// CountFrame is cheap and safe from the frame loop; the sampling runs
// on its own goroutine.
type Service struct {
	deps Dependencies
	cfg  Config

	mu        sync.RWMutex
	isRunning bool
	stopChan  chan struct{}

	frames      uint64
	lastFrames  uint64
	rate        float64
	degraded    bool
	active      bool
	transitions []func(degraded bool)
}

// NewService creates a new monitor service.
func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = time.Second
	}
	if cfg.RecoverThreshold < cfg.LowThreshold {
		cfg.RecoverThreshold = cfg.LowThreshold
	}
	return &Service{
		deps:     deps,
		cfg:      cfg,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the sampler is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// CountFrame records one rendered frame.
func (s *Service) CountFrame() {
	s.mu.Lock()
	s.frames++
	s.mu.Unlock()
}

// SetActive tells the monitor whether frames are currently expected.
// While inactive the rate is still sampled but the degraded state is
// frozen: an overlay that is attached with nothing animating reads
// zero frames per second, and that must not shed scheduler work.
func (s *Service) SetActive(active bool) {
	s.mu.Lock()
	s.active = active
	s.mu.Unlock()
}

// Rate returns the frame rate from the last sample, in frames per
// second.
func (s *Service) Rate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rate
}

// Degraded reports whether the last sample left the system degraded.
func (s *Service) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

// OnTransition registers fn to run whenever the degraded state flips.
// Registration is not safe after Start.
func (s *Service) OnTransition(fn func(degraded bool)) {
	s.transitions = append(s.transitions, fn)
}

// Snapshot returns the current status.
func (s *Service) Snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Time:     time.Now(),
		FPS:      s.rate,
		Degraded: s.degraded,
		Frames:   s.frames,
	}
}

// sample computes the rate since the previous sample and applies the
// hysteresis. A single low sample is enough to degrade; a single
// healthy sample is enough to recover. While inactive the state never
// flips, it only tracks the rate.
func (s *Service) sample(elapsed time.Duration) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delta := s.frames - s.lastFrames
	s.lastFrames = s.frames
	s.rate = float64(delta) / elapsed.Seconds()

	flipped := false
	if s.active {
		if !s.degraded && s.rate < s.cfg.LowThreshold {
			s.degraded = true
			flipped = true
		} else if s.degraded && s.rate >= s.cfg.RecoverThreshold {
			s.degraded = false
			flipped = true
		}
	}

	return Status{
		Time:     time.Now(),
		FPS:      s.rate,
		Degraded: s.degraded,
		Frames:   s.frames,
	}, flipped
}

// Start starts the sampling goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	stop := s.stopChan
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting frame rate monitor", "function", "monitor.Start")

		var statusFile *os.File
		if s.deps.StatusDir != "" {
			var err error
			statusFile, err = os.Create(s.deps.StatusDir + "/status.json")
			if err != nil {
				logger.Error("Error creating status file", "error", err)
			}
		}
		if statusFile != nil {
			defer statusFile.Close()
		}

		ticker := time.NewTicker(s.cfg.SampleInterval)
		defer ticker.Stop()
		last := time.Now()

		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				status, flipped := s.sample(now.Sub(last))
				last = now

				if flipped {
					if status.Degraded {
						logger.Warn("Frame rate degraded",
							"fps", status.FPS,
							"threshold", s.cfg.LowThreshold)
					} else {
						logger.Info("Frame rate recovered",
							"fps", status.FPS,
							"threshold", s.cfg.RecoverThreshold)
					}
					for _, fn := range s.transitions {
						fn(status.Degraded)
					}
				}

				if statusFile != nil {
					s.writeStatus(statusFile, status)
				}

				if s.deps.Influx != nil {
					bucket, point := influx.FrameRatePoint(s.deps.Session, status.FPS, status.Degraded, status.Time)
					if err := s.deps.Influx.WritePoint(context.Background(), bucket, point); err != nil {
						logger.Error("Error writing frame rate point", "error", err)
					}
				}
			}
		}
	}()

	return nil
}

func (s *Service) writeStatus(file *os.File, status Status) {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		data = []byte(fmt.Sprintf(`{"error": %q}`, err.Error()))
	}
	file.Truncate(0)
	file.Seek(0, 0)
	file.Write(append(data, '\n'))
}

// Stop stops the sampler.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
		s.isRunning = false
	}
}
