package monitor

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairtitelboim/Maps-sub002/internal/logging"
)

func newTestService(cfg Config) *Service {
	lm := logging.NewSlogManager()
	lm.Setup(io.Discard, "ERROR", nil)
	s := NewService(Dependencies{LogManager: lm, Session: "test"}, cfg)
	s.SetActive(true) // most tests sample while frames are expected
	return s
}

func countFrames(s *Service, n int) {
	for i := 0; i < n; i++ {
		s.CountFrame()
	}
}

func TestSample_ComputesRate(t *testing.T) {
	s := newTestService(Config{LowThreshold: 30, RecoverThreshold: 30})

	countFrames(s, 60)
	status, _ := s.sample(time.Second)

	assert.InDelta(t, 60.0, status.FPS, 0.001)
	assert.Equal(t, 60.0, s.Rate())
	assert.False(t, status.Degraded)
}

func TestSample_RateIsPerInterval(t *testing.T) {
	s := newTestService(Config{LowThreshold: 30, RecoverThreshold: 30})

	countFrames(s, 60)
	s.sample(time.Second)

	// no frames in the second interval
	status, _ := s.sample(time.Second)
	assert.Zero(t, status.FPS)
}

func TestSample_SingleLowSampleDegrades(t *testing.T) {
	s := newTestService(Config{LowThreshold: 30, RecoverThreshold: 30})

	countFrames(s, 20)
	status, flipped := s.sample(time.Second)

	assert.True(t, flipped)
	assert.True(t, status.Degraded)
	assert.True(t, s.Degraded())
}

func TestSample_SingleHealthySampleRecovers(t *testing.T) {
	s := newTestService(Config{LowThreshold: 30, RecoverThreshold: 30})

	countFrames(s, 20)
	_, flipped := s.sample(time.Second)
	require.True(t, flipped)

	countFrames(s, 45)
	status, flipped := s.sample(time.Second)
	assert.True(t, flipped)
	assert.False(t, status.Degraded)
}

func TestSample_HysteresisGap(t *testing.T) {
	// degrade below 25, recover only at 35 or above
	s := newTestService(Config{LowThreshold: 25, RecoverThreshold: 35})

	countFrames(s, 20)
	_, flipped := s.sample(time.Second)
	require.True(t, flipped)
	require.True(t, s.Degraded())

	// 30 fps is between thresholds: still degraded, no flip
	countFrames(s, 30)
	_, flipped = s.sample(time.Second)
	assert.False(t, flipped)
	assert.True(t, s.Degraded())

	countFrames(s, 40)
	_, flipped = s.sample(time.Second)
	assert.True(t, flipped)
	assert.False(t, s.Degraded())
}

func TestSample_NoFlipWhileHealthy(t *testing.T) {
	s := newTestService(Config{LowThreshold: 30, RecoverThreshold: 30})

	for i := 0; i < 3; i++ {
		countFrames(s, 60)
		_, flipped := s.sample(time.Second)
		assert.False(t, flipped)
	}
}

func TestSample_InactiveNeverDegrades(t *testing.T) {
	s := newTestService(Config{LowThreshold: 30, RecoverThreshold: 30})
	s.SetActive(false)

	// attached but nothing animating: zero frames must not degrade
	for i := 0; i < 3; i++ {
		status, flipped := s.sample(time.Second)
		assert.False(t, flipped)
		assert.False(t, status.Degraded)
		assert.Zero(t, status.FPS)
	}

	// once frames are expected again, low samples degrade as usual
	s.SetActive(true)
	countFrames(s, 10)
	status, flipped := s.sample(time.Second)
	assert.True(t, flipped)
	assert.True(t, status.Degraded)
}

func TestSample_InactiveFreezesDegradedState(t *testing.T) {
	s := newTestService(Config{LowThreshold: 30, RecoverThreshold: 30})

	countFrames(s, 10)
	_, flipped := s.sample(time.Second)
	require.True(t, flipped)
	require.True(t, s.Degraded())

	// going idle keeps the degraded verdict until frames resume
	s.SetActive(false)
	_, flipped = s.sample(time.Second)
	assert.False(t, flipped)
	assert.True(t, s.Degraded())
}

func TestConfig_RecoverFloorsAtLow(t *testing.T) {
	s := newTestService(Config{LowThreshold: 30, RecoverThreshold: 10})
	assert.Equal(t, 30.0, s.cfg.RecoverThreshold)
}

func TestOnTransition(t *testing.T) {
	s := newTestService(Config{LowThreshold: 30, RecoverThreshold: 30})

	var got []bool
	s.OnTransition(func(degraded bool) { got = append(got, degraded) })

	countFrames(s, 10)
	status, flipped := s.sample(time.Second)
	if flipped {
		for _, fn := range s.transitions {
			fn(status.Degraded)
		}
	}

	require.Len(t, got, 1)
	assert.True(t, got[0])
}

func TestService_StartStop(t *testing.T) {
	s := newTestService(Config{
		SampleInterval:   10 * time.Millisecond,
		LowThreshold:     30,
		RecoverThreshold: 30,
	})

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	// a second Start is a no-op
	require.NoError(t, s.Start())

	countFrames(s, 5)
	time.Sleep(50 * time.Millisecond)
	assert.True(t, s.Degraded(), "5 frames over 50ms is far below 30fps")

	s.Stop()
	time.Sleep(30 * time.Millisecond)
	assert.False(t, s.IsRunning())
}

func TestSnapshot(t *testing.T) {
	s := newTestService(Config{LowThreshold: 30, RecoverThreshold: 30})

	countFrames(s, 42)
	s.sample(time.Second)

	snap := s.Snapshot()
	assert.Equal(t, uint64(42), snap.Frames)
	assert.InDelta(t, 42.0, snap.FPS, 0.001)
}
