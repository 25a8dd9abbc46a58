package session

import (
	"time"

	"github.com/okian/neurolens/internal/domain/scoring"
	"github.com/okian/neurolens/pkg/logger"
)

// Option applies a configuration option to an Orchestrator.
type Option func(*Orchestrator)

// WithChildName records the child's name on the session.
func WithChildName(name string) Option {
	return func(o *Orchestrator) { o.childName = name }
}

// WithAgeMonths sets the child's age carried in the session record.
func WithAgeMonths(months int) Option {
	return func(o *Orchestrator) {
		if months > 0 {
			o.ageMonths = months
		}
	}
}

// WithAggregator sets the aggregator used once every module is merged.
func WithAggregator(a *scoring.Aggregator) Option {
	return func(o *Orchestrator) {
		if a != nil {
			o.aggregator = a
		}
	}
}

// WithHeadless starts every module as soon as it is armed and skips any
// module that fails, for runs without a caregiver.
func WithHeadless() Option {
	return func(o *Orchestrator) { o.headless = true }
}

// WithClock sets the wall clock used for snapshot timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}
