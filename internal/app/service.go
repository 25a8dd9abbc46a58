// Package service owns the live screening sessions: it creates them,
// queues them for a bounded pool of runners, routes caregiver actions to
// them, and keeps recently finished ones queryable.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/okian/neurolens/internal/adapters/capture"
	"github.com/okian/neurolens/internal/adapters/mq/queue"
	"github.com/okian/neurolens/internal/adapters/mq/worker"
	"github.com/okian/neurolens/internal/domain/model"
	"github.com/okian/neurolens/internal/domain/scoring"
	"github.com/okian/neurolens/internal/session"
	"github.com/okian/neurolens/internal/session/module"
	"github.com/okian/neurolens/pkg/logger"
	"github.com/okian/neurolens/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultWorkerCount = 1
	defaultQueueSize   = 16
	defaultRetained    = 64
	defaultAgeMonths   = 24
	sessionQueueName   = "sessions"
)

// job adapts one orchestrator to the worker pool.
type job struct {
	orch   *session.Orchestrator
	ctx    context.Context
	cancel context.CancelFunc
}

func (j *job) ID() string { return j.orch.ID() }

func (j *job) Run(ctx context.Context) model.RiskAssessment {
	if j.ctx.Err() != nil {
		return model.RiskAssessment{}
	}
	stop := context.AfterFunc(ctx, j.cancel)
	defer stop()
	defer j.cancel()
	return j.orch.Run(j.ctx)
}

// Service implements the API dependencies for screening sessions.
type Service struct {
	mu sync.RWMutex

	// Core components
	queue    *queue.InMemoryQueue[worker.Job]
	pool     *worker.Pool
	live     map[string]*job
	finished *lru.Cache[string, *job]

	devices    capture.Devices
	dialer     module.Dialer
	analyzer   session.Analyzer
	aggregator *scoring.Aggregator
	factory    ModuleFactory
	moduleOpts []module.Option

	// Configuration
	workerCount       int
	queueSize         int
	retained          int
	ageMonths         int
	nameFallbackDelay time.Duration

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:       defaultWorkerCount,
		queueSize:         defaultQueueSize,
		retained:          defaultRetained,
		ageMonths:         defaultAgeMonths,
		nameFallbackDelay: module.DefaultNameFallbackDelay,
		live:              make(map[string]*job),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.aggregator == nil {
		s.aggregator = scoring.NewAggregator()
	}
	if s.factory == nil {
		s.factory = func(p module.Params) []module.Module {
			return module.Sequence(p, s.devices, s.dialer, s.moduleOpts...)
		}
	}
	return s
}

// Start creates the session queue and runner pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	finished, err := lru.New[string, *job](s.retained)
	if err != nil {
		return fmt.Errorf("create session cache: %w", err)
	}
	s.finished = finished
	s.queue = queue.NewInMemoryQueue[worker.Job](
		queue.WithCapacity(s.queueSize),
		queue.WithName(sessionQueueName),
	)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool = worker.NewPool(s.workerCount, s.queue, worker.WithOnDone(s.onDone))
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "session service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("retained", s.retained),
	)
	return nil
}

// Stop abandons running sessions and shuts down the runner pool.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	for _, j := range s.live {
		j.cancel()
	}
	pool, cancel := s.pool, s.cancel
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping session service...")
	cancel()
	if err := pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "runner pool shutdown incomplete", logger.Error(err))
	}
	s.logger.Info(ctx, "session service stopped")
}

// CreateSession registers a session and queues it for a runner.
func (s *Service) CreateSession(ctx context.Context, req model.SessionRequest) (string, error) {
	if strings.TrimSpace(req.ChildName) == "" {
		return "", module.ErrChildNameRequired
	}
	age := req.AgeMonths
	if age <= 0 {
		age = s.ageMonths
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return "", ErrNotStarted
	}

	id := uuid.NewString()
	opts := []session.Option{
		session.WithChildName(req.ChildName),
		session.WithAgeMonths(age),
		session.WithAggregator(s.aggregator),
		session.WithLogger(s.logger.Named("session")),
	}
	if req.Headless {
		opts = append(opts, session.WithHeadless())
	}
	modules := s.factory(module.Params{
		ChildName:         req.ChildName,
		SpeechRecognition: req.SpeechRecognition,
		NameFallbackDelay: s.nameFallbackDelay,
	})
	jobCtx, cancel := context.WithCancel(context.Background())
	j := &job{orch: session.New(id, modules, s.analyzer, opts...), ctx: jobCtx, cancel: cancel}

	if !s.queue.Enqueue(ctx, j) {
		cancel()
		return "", ErrBackpressure
	}
	s.live[id] = j
	s.logger.Info(ctx, "session created", logger.String("session", id), logger.Int("ageMonths", age))
	return id, nil
}

func (s *Service) onDone(w worker.Job, out model.RiskAssessment, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.live[w.ID()]
	if !ok {
		return
	}
	delete(s.live, w.ID())
	if _, done := j.orch.Result(); done {
		s.finished.Add(w.ID(), j)
	}
	s.logger.Debug(context.Background(), "session retired",
		logger.String("session", w.ID()),
		logger.String("band", string(out.RiskBand)),
		logger.Duration("elapsed", elapsed),
	)
}

func (s *Service) lookup(id string) (*session.Orchestrator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if j, ok := s.live[id]; ok {
		return j.orch, nil
	}
	if s.finished != nil {
		if j, ok := s.finished.Get(id); ok {
			return j.orch, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
}

// Snapshot returns the current state of a session.
func (s *Service) Snapshot(_ context.Context, id string) (model.SessionSnapshot, error) {
	o, err := s.lookup(id)
	if err != nil {
		return model.SessionSnapshot{}, err
	}
	return o.Snapshot(), nil
}

// Start begins recording the armed module of a session.
func (s *Service) Start(_ context.Context, id string) error {
	o, err := s.lookup(id)
	if err != nil {
		return err
	}
	return o.Start()
}

// CompleteEarly finishes the recording module of a session.
func (s *Service) CompleteEarly(_ context.Context, id string) error {
	o, err := s.lookup(id)
	if err != nil {
		return err
	}
	return o.CompleteEarly()
}

// Transcript forwards a speech-recognition result to a session.
func (s *Service) Transcript(_ context.Context, id, text string, final bool) error {
	o, err := s.lookup(id)
	if err != nil {
		return err
	}
	return o.Transcript(text, final)
}

// Retry re-arms the failed module of a session.
func (s *Service) Retry(_ context.Context, id string) error {
	o, err := s.lookup(id)
	if err != nil {
		return err
	}
	return o.Retry()
}

// Skip records a fallback result for the failed module of a session.
func (s *Service) Skip(_ context.Context, id string) error {
	o, err := s.lookup(id)
	if err != nil {
		return err
	}
	return o.Skip()
}

// Result returns the assessment of a completed session.
func (s *Service) Result(_ context.Context, id string) (model.RiskAssessment, error) {
	o, err := s.lookup(id)
	if err != nil {
		return model.RiskAssessment{}, err
	}
	out, ok := o.Result()
	if !ok {
		return model.RiskAssessment{}, fmt.Errorf("%w: %s", ErrNotFinished, id)
	}
	return out, nil
}

// Wait blocks until the session finishes or ctx is done.
func (s *Service) Wait(ctx context.Context, id string) (model.RiskAssessment, error) {
	o, err := s.lookup(id)
	if err != nil {
		return model.RiskAssessment{}, err
	}
	select {
	case <-o.Done():
	case <-ctx.Done():
		return model.RiskAssessment{}, ctx.Err()
	}
	out, ok := o.Result()
	if !ok {
		return model.RiskAssessment{}, fmt.Errorf("%w: %s was abandoned", ErrNotFinished, id)
	}
	return out, nil
}

// Abandon cancels a session and discards it.
func (s *Service) Abandon(ctx context.Context, id string) error {
	s.mu.Lock()
	j, live := s.live[id]
	if live {
		delete(s.live, id)
	}
	var retained bool
	if !live && s.finished != nil {
		retained = s.finished.Remove(id)
	}
	s.mu.Unlock()

	if !live && !retained {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if live {
		j.cancel()
	}
	s.logger.Info(ctx, "session discarded", logger.String("session", id))
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}
	if s.started {
		queueLen := s.queue.Len()
		stats["queueLength"] = queueLen
		stats["liveSessions"] = len(s.live)
		stats["finishedSessions"] = s.finished.Len()
		stats["busyRunners"] = s.pool.Busy()
		metrics.UpdateQueueSize(sessionQueueName, queueLen)
	}
	return stats
}
