package service

import (
	"context"
	"time"

	"github.com/okian/neurolens/internal/adapters/capture"
	"github.com/okian/neurolens/internal/adapters/telemetry"
	"github.com/okian/neurolens/internal/domain/model"
	"github.com/okian/neurolens/internal/domain/scoring"
	"github.com/okian/neurolens/internal/session"
	"github.com/okian/neurolens/internal/session/module"
	"github.com/okian/neurolens/pkg/logger"
)

// ModuleFactory builds the modules of one session.
type ModuleFactory func(p module.Params) []module.Module

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets how many sessions may run at once.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets how many created sessions may wait for a runner.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithRetainedSessions sets how many finished sessions stay queryable.
func WithRetainedSessions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.retained = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDevices sets the capture devices shared by every session.
func WithDevices(d capture.Devices) Option {
	return func(s *Service) {
		if d != nil {
			s.devices = d
		}
	}
}

// WithDialer sets how modules open telemetry links.
func WithDialer(d module.Dialer) Option {
	return func(s *Service) {
		if d != nil {
			s.dialer = d
		}
	}
}

// WithTelemetry opens module links through a telemetry Dialer.
func WithTelemetry(d *telemetry.Dialer) Option {
	return WithDialer(module.DialFunc(func(ctx context.Context, task model.Task) module.Link {
		return d.Open(ctx, task)
	}))
}

// WithAnalyzer sets the batch analysis client.
func WithAnalyzer(a session.Analyzer) Option {
	return func(s *Service) {
		if a != nil {
			s.analyzer = a
		}
	}
}

// WithAggregator sets the aggregator shared by every session.
func WithAggregator(a *scoring.Aggregator) Option {
	return func(s *Service) {
		if a != nil {
			s.aggregator = a
		}
	}
}

// WithAgeMonths sets the age used when a request carries none.
func WithAgeMonths(months int) Option {
	return func(s *Service) {
		if months > 0 {
			s.ageMonths = months
		}
	}
}

// WithNameFallbackDelay sets the name cue delay used without speech
// recognition.
func WithNameFallbackDelay(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.nameFallbackDelay = d
		}
	}
}

// WithModuleOptions sets options applied to every module controller.
func WithModuleOptions(opts ...module.Option) Option {
	return func(s *Service) {
		s.moduleOpts = append(s.moduleOpts, opts...)
	}
}

// WithModuleFactory replaces how session modules are built.
func WithModuleFactory(f ModuleFactory) Option {
	return func(s *Service) {
		if f != nil {
			s.factory = f
		}
	}
}
