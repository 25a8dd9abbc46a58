package main

import (
	"fmt"
	"net"
	"time"

	"github.com/okian/neurolens/internal/adapters/analysis"
	"github.com/okian/neurolens/internal/adapters/capture"
	"github.com/okian/neurolens/internal/adapters/telemetry"
	service "github.com/okian/neurolens/internal/app"
	"github.com/okian/neurolens/internal/config"
	"github.com/okian/neurolens/internal/session/module"
)

// newService resolves the analysis endpoints once and builds the session service.
func newService(cfg *config.Config) (*service.Service, config.Endpoints, error) {
	ep, err := config.EndpointsFor(config.ResolveEndpoint(cfg.AnalysisEndpoint))
	if err != nil {
		return nil, config.Endpoints{}, err
	}
	dialer := telemetry.NewDialer(ep,
		telemetry.WithOutboundBuffer(cfg.OutboundBuffer),
		telemetry.WithEnvelopeAudio(cfg.EnvelopeAudio),
	)
	client := analysis.NewClient(ep.Batch,
		analysis.WithTimeout(time.Duration(cfg.BatchTimeoutMS)*time.Millisecond),
	)
	svc := service.New(
		service.WithWorkerCount(cfg.MaxSessions),
		service.WithQueueSize(cfg.SessionQueueSize),
		service.WithAgeMonths(cfg.AgeMonths),
		service.WithNameFallbackDelay(time.Duration(cfg.NameFallbackDelayMS)*time.Millisecond),
		service.WithDevices(devicesFor(cfg)),
		service.WithTelemetry(dialer),
		service.WithAnalyzer(client),
		service.WithModuleOptions(
			module.WithRefreshHz(cfg.DisplayRefreshHz),
			module.WithAudio(cfg.AudioSampleRate, cfg.AudioBlockSize),
		),
	)
	return svc, ep, nil
}

// devicesFor picks replay devices when a recording directory is configured.
func devicesFor(cfg *config.Config) capture.Devices {
	if cfg.ReplayDir != "" {
		return capture.NewReplayDevices(cfg.ReplayDir)
	}
	return capture.NewSyntheticDevices(true)
}

// loopbackURL turns a listen address into a base URL reachable from this host.
func loopbackURL(addr string) (string, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("%w: addr %q: %w", config.ErrInvalidConfig, addr, err)
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port), nil
}
