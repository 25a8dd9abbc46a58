// Package worker runs queued session jobs on a fixed pool of runners.
//
// Each runner executes one job at a time to completion, which bounds how
// many sessions hold capture devices and telemetry links concurrently.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/neurolens/internal/domain/model"
	"github.com/okian/neurolens/pkg/logger"
	"github.com/okian/neurolens/pkg/metrics"
)

// Default pool configuration constants.
const (
	defaultWorkerCount  = 1
	poolShutdownTimeout = 30 * time.Second
)

// Job is one queued session.
type Job interface {
	ID() string
	// Run blocks until the session completes or ctx is done.
	Run(ctx context.Context) model.RiskAssessment
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// DoneFunc is called after each job returns.
type DoneFunc func(job Job, out model.RiskAssessment, elapsed time.Duration)

// Worker executes jobs until ctx is canceled or the queue closes.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue  Queue
	name   string
	onDone DoneFunc
	busy   *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker draining queue.
func NewInMemoryWorker(queue Queue, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		name:     "worker",
		busy:     &atomic.Int64{},
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop. A job already running is not interrupted by
// Shutdown; cancel ctx to abandon it.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

// Shutdown signals the worker to stop and waits for its current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, job Job) {
	metrics.UpdateActiveSessions(int(w.busy.Add(1)))
	defer func() { metrics.UpdateActiveSessions(int(w.busy.Add(-1))) }()

	start := time.Now()
	w.logger.Info(ctx, "session picked up", logger.String("session", job.ID()))
	out := job.Run(ctx)
	elapsed := time.Since(start)
	w.logger.Info(ctx, "session returned",
		logger.String("session", job.ID()),
		logger.String("band", string(out.RiskBand)),
		logger.Duration("elapsed", elapsed),
	)
	if w.onDone != nil {
		w.onDone(job, out, elapsed)
	}
}

// Pool manages a fixed set of workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	busy    atomic.Int64
	logger  logger.Logger
}

// NewPool creates workerCount workers. Options apply to every worker;
// WithName is used as a prefix.
func NewPool(workerCount int, queue Queue, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range workerCount {
		w := NewInMemoryWorker(queue, opts...)
		w.busy = &p.busy
		if w.name == "worker" {
			w.name = "runner"
		}
		w.name += "-" + strconv.Itoa(i)
		w.logger = w.logger.Named(strconv.Itoa(i))
		p.workers[i] = w
	}
	metrics.UpdateActiveSessions(0)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Busy returns how many workers are running a job.
func (p *Pool) Busy() int { return int(p.busy.Load()) }

// Start starts all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue if it can be closed, then waits for every
// worker to return its current job.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var firstErr error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
