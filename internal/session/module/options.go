package module

import (
	"time"

	"github.com/okian/neurolens/pkg/logger"
)

type settings struct {
	refreshHz  int
	sampleRate int
	blockSize  int
	tick       time.Duration
	clock      func() time.Time
	logger     logger.Logger
}

// Option applies a configuration option to a Controller.
type Option func(*settings)

// WithRefreshHz sets the video pump rate.
func WithRefreshHz(hz int) Option {
	return func(s *settings) {
		if hz > 0 {
			s.refreshHz = hz
		}
	}
}

// WithAudio sets the microphone sample rate and block size.
func WithAudio(sampleRate, blockSize int) Option {
	return func(s *settings) {
		if sampleRate > 0 {
			s.sampleRate = sampleRate
		}
		if blockSize > 0 {
			s.blockSize = blockSize
		}
	}
}

// WithTick sets the countdown period. One countdown second elapses per tick.
func WithTick(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithClock sets the wall clock used for timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *settings) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
