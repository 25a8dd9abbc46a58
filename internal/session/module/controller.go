package module

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/neurolens/internal/adapters/capture"
	"github.com/okian/neurolens/internal/domain/feedback"
	"github.com/okian/neurolens/internal/domain/model"
	"github.com/okian/neurolens/pkg/logger"
	"github.com/okian/neurolens/pkg/metrics"
)

// Default controller configuration constants.
const (
	defaultRefreshHz = 60
	defaultTick      = time.Second
)

// Controls carries caregiver actions into a running module. Nil channels
// are never selected.
type Controls struct {
	Start       <-chan struct{}
	Complete    <-chan struct{}
	Transcripts <-chan TranscriptEvent
}

// Observer is told about every observable change of a running module.
// Calls happen on the module goroutine and must not block.
type Observer interface {
	ModuleState(task model.Task, state model.ModuleState, err error)
	Countdown(task model.Task, remaining int)
	Feedback(task model.Task, fb feedback.Feedback)
}

// NopObserver ignores everything.
type NopObserver struct{}

func (NopObserver) ModuleState(model.Task, model.ModuleState, error) {}
func (NopObserver) Countdown(model.Task, int)                        {}
func (NopObserver) Feedback(model.Task, feedback.Feedback)           {}

// Module is one runnable exercise.
type Module interface {
	Task() model.Task
	// Run blocks until the module finishes, fails to arm, or ctx is done.
	Run(ctx context.Context, ctl Controls, obs Observer) (model.ModuleResult, error)
	// Fallback is the result recorded when the module is skipped.
	Fallback() model.ModuleResult
}

// Controller runs a Strategy through idle, arming, armed, recording and
// finished. Every device, link and pump it starts is released before Run
// returns.
type Controller[S any] struct {
	strategy Strategy[S]
	devices  capture.Devices
	dialer   Dialer
	settings
}

var _ Module = (*Controller[struct{}])(nil)

// New creates a controller for strategy.
func New[S any](strategy Strategy[S], devices capture.Devices, dialer Dialer, opts ...Option) *Controller[S] {
	s := settings{
		refreshHz:  defaultRefreshHz,
		sampleRate: capture.DefaultSampleRate,
		blockSize:  capture.DefaultBlockSize,
		tick:       defaultTick,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("module")
	}
	s.logger = s.logger.Named(string(strategy.Profile().Task))
	return &Controller[S]{strategy: strategy, devices: devices, dialer: dialer, settings: s}
}

// Task returns the exercise tag.
func (c *Controller[S]) Task() model.Task { return c.strategy.Profile().Task }

// Fallback finishes a fresh state with no feedback at all.
func (c *Controller[S]) Fallback() model.ModuleResult {
	now := c.clock()
	res := c.strategy.Finish(c.strategy.Init(now), Finish{Started: now, Ended: now, Skipped: true})
	res.Skipped = true
	return res
}

// Run executes the module once.
func (c *Controller[S]) Run(ctx context.Context, ctl Controls, obs Observer) (model.ModuleResult, error) { //nolint:gocyclo,funlen // one state machine
	if obs == nil {
		obs = NopObserver{}
	}
	profile := c.strategy.Profile()
	task := profile.Task

	fail := func(err error) (model.ModuleResult, error) {
		obs.ModuleState(task, model.StateFailed, err)
		c.logger.Warn(ctx, "module failed", logger.Error(err))
		return model.ModuleResult{}, err
	}

	if v, ok := any(c.strategy).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fail(err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	obs.ModuleState(task, model.StateArming, nil)
	pump, release, err := c.acquire(runCtx, profile)
	if err != nil {
		metrics.RecordCaptureError(string(task), "acquire")
		return fail(fmt.Errorf("%w: %w", ErrDeviceAcquire, err))
	}
	defer release()

	link := c.dialer.Open(runCtx, task)
	defer func() { _ = link.Close() }()

	select {
	case <-link.Ready():
	case <-link.Done():
		return fail(fmt.Errorf("%w: %w", ErrLinkConnect, linkErr(link)))
	case <-ctx.Done():
		return model.ModuleResult{}, ctx.Err()
	}
	obs.ModuleState(task, model.StateArmed, nil)

	inbound := link.Inbound()
	for armed := true; armed; {
		select {
		case <-ctl.Start:
			armed = false
		case _, ok := <-inbound:
			if !ok {
				inbound = nil
			}
		case <-link.Done():
			return fail(fmt.Errorf("%w: %w", ErrLinkConnect, linkErr(link)))
		case <-ctx.Done():
			return model.ModuleResult{}, ctx.Err()
		}
	}

	started := c.clock()
	state := c.strategy.Init(started)
	remaining := int(profile.Duration / time.Second)
	obs.ModuleState(task, model.StateRecording, nil)
	obs.Countdown(task, remaining)
	c.logger.Info(ctx, "recording started", logger.Int("seconds", remaining))

	pumpCtx, stopPump := context.WithCancel(runCtx)
	var wg sync.WaitGroup
	pumpErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		pumpErr <- pump(pumpCtx, link)
	}()
	stop := func() {
		stopPump()
		wg.Wait()
	}
	defer stop()

	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	var trigger <-chan time.Time
	if profile.TriggerDelay > 0 {
		t := time.NewTimer(profile.TriggerDelay)
		defer t.Stop()
		trigger = t.C
	}

	apply := func(ev Event) {
		var out []model.Outbound
		state, out = c.strategy.Reduce(state, ev)
		for _, msg := range out {
			if !link.Send(msg) {
				c.logger.Warn(ctx, "control message dropped", logger.String("command", msg.Command))
			}
		}
	}

	early := false
loop:
	for {
		select {
		case <-ticker.C:
			remaining--
			obs.Countdown(task, remaining)
			if remaining <= 0 {
				break loop
			}
		case <-ctl.Complete:
			early = true
			break loop
		case fb, ok := <-inbound:
			if !ok {
				inbound = nil
				c.logger.Warn(ctx, "feedback stream ended", logger.Error(link.Err()))
				continue
			}
			apply(FeedbackEvent{Feedback: fb})
			obs.Feedback(task, fb)
		case tr := <-ctl.Transcripts:
			apply(tr)
		case <-trigger:
			trigger = nil
			apply(TimerEvent{})
		case err := <-pumpErr:
			if err != nil {
				c.logger.Warn(ctx, "capture stopped", logger.Error(err))
			}
		case <-ctx.Done():
			return model.ModuleResult{}, ctx.Err()
		}
	}

	stop()
	ended := c.clock()
	res := c.strategy.Finish(state, Finish{Started: started, Ended: ended, Early: early})

	reason := "timeout"
	if early {
		reason = "early"
	}
	metrics.RecordModuleCompleted(string(task), reason)
	metrics.RecordModuleScore(string(task), res.Score.String())
	metrics.ObserveModuleDuration(string(task), ended.Sub(started))
	obs.ModuleState(task, model.StateFinished, nil)
	c.logger.Info(ctx, "module finished",
		logger.String("reason", reason),
		logger.Int("score", int(res.Score)),
		logger.Float64("durationSec", res.DurationSec),
	)
	return res, nil
}

type pumpFunc func(ctx context.Context, sink capture.Sink) error

func (c *Controller[S]) acquire(ctx context.Context, profile Profile) (pumpFunc, func(), error) {
	if profile.Task.Audio() {
		mic, err := c.devices.OpenMicrophone(ctx, c.sampleRate)
		if err != nil {
			return nil, nil, err
		}
		pump := func(ctx context.Context, sink capture.Sink) error {
			p := &capture.AudioPump{Task: profile.Task, Source: mic, Sink: sink, BlockSize: c.blockSize}
			return p.Run(ctx)
		}
		return pump, func() { _ = mic.Close() }, nil
	}

	cam, err := c.devices.OpenCamera(ctx)
	if err != nil {
		return nil, nil, err
	}
	enc := capture.NewFrameEncoder(capture.WithMirror(profile.Mirror), capture.WithQuality(profile.Quality))
	pump := func(ctx context.Context, sink capture.Sink) error {
		p := &capture.VideoPump{Task: profile.Task, Source: cam, Encoder: enc, Sink: sink, RefreshHz: c.refreshHz}
		return p.Run(ctx)
	}
	return pump, func() { _ = cam.Close() }, nil
}

func linkErr(l Link) error {
	if err := l.Err(); err != nil {
		return err
	}
	return errors.New("link closed before it became ready")
}
