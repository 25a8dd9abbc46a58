// Package session sequences the five exercise modules of one screening
// session, merges their results, and turns the merged record into a risk
// assessment.
//
// Exactly one module is active at a time. A module that cannot arm stays
// visible in the failed state until the caregiver retries or skips it.
package session

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/okian/neurolens/internal/domain/feedback"
	"github.com/okian/neurolens/internal/domain/model"
	"github.com/okian/neurolens/internal/domain/scoring"
	"github.com/okian/neurolens/internal/session/module"
	"github.com/okian/neurolens/pkg/logger"
	"github.com/okian/neurolens/pkg/metrics"
)

const transcriptBuffer = 16

// Analyzer performs the end-of-session batch analysis call.
type Analyzer interface {
	Analyze(ctx context.Context, payload map[string]float64) (*model.BatchReport, error)
}

type decision int

const (
	decisionRetry decision = iota + 1
	decisionSkip
)

// Orchestrator runs one session. Control methods are safe to call from any
// goroutine while Run is in progress.
type Orchestrator struct {
	id         string
	childName  string
	ageMonths  int
	modules    []module.Module
	analyzer   Analyzer
	aggregator *scoring.Aggregator
	headless   bool
	clock      func() time.Time
	logger     logger.Logger

	transcripts chan module.TranscriptEvent
	decisions   chan decision
	done        chan struct{}

	mu         sync.RWMutex
	snap       model.SessionSnapshot
	start      chan struct{}
	complete   chan struct{}
	assessment *model.RiskAssessment
}

// New creates an orchestrator for modules, run in the order given.
func New(id string, modules []module.Module, analyzer Analyzer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		id:          id,
		modules:     modules,
		analyzer:    analyzer,
		clock:       time.Now,
		transcripts: make(chan module.TranscriptEvent, transcriptBuffer),
		decisions:   make(chan decision, 1),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.aggregator == nil {
		o.aggregator = scoring.NewAggregator()
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("session")
	}
	now := o.clock()
	o.snap = model.SessionSnapshot{
		ID:          id,
		ChildName:   o.childName,
		AgeMonths:   o.ageMonths,
		ModuleState: model.StateIdle,
		Submission:  model.SubmissionIdle,
		Results:     []model.ModuleResult{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return o
}

// ID returns the session identifier.
func (o *Orchestrator) ID() string { return o.id }

// Done is closed when Run returns.
func (o *Orchestrator) Done() <-chan struct{} { return o.done }

// Run executes every module, submits the merged record, and returns the
// assessment. It never fails: a batch-call failure yields the Error band,
// and a cancelled ctx abandons the session with a zero assessment.
func (o *Orchestrator) Run(ctx context.Context) model.RiskAssessment {
	defer close(o.done)

	o.logger.Info(ctx, "session started", logger.String("session", o.id), logger.Int("modules", len(o.modules)))
	rec := model.NewRecord(o.ageMonths)
	for i, m := range o.modules {
		res, ok := o.runModule(ctx, i, m)
		if !ok {
			return o.abandon(ctx)
		}
		if err := rec.Merge(res); err != nil {
			o.logger.Warn(ctx, "module result rejected", logger.String("task", string(m.Task())), logger.Error(err))
			continue
		}
		o.update(func(s *model.SessionSnapshot) {
			s.Results = append(s.Results, res)
		})
	}
	return o.submit(ctx, rec)
}

func (o *Orchestrator) runModule(ctx context.Context, i int, m module.Module) (model.ModuleResult, bool) {
	task := m.Task()
	for {
		ctl := o.arm(i, task)
		res, err := m.Run(ctx, ctl, observer{o})
		if err == nil {
			return res, true
		}
		if ctx.Err() != nil {
			return model.ModuleResult{}, false
		}
		o.update(func(s *model.SessionSnapshot) {
			s.ModuleState = model.StateFailed
			s.LastError = err.Error()
			s.Connected = false
		})
		if o.headless {
			o.logger.Warn(ctx, "skipping failed module", logger.String("task", string(task)), logger.Error(err))
			return o.skip(m), true
		}

		select {
		case d := <-o.decisions:
			if d == decisionSkip {
				return o.skip(m), true
			}
			o.logger.Info(ctx, "retrying module", logger.String("task", string(task)))
		case <-ctx.Done():
			return model.ModuleResult{}, false
		}
	}
}

func (o *Orchestrator) skip(m module.Module) model.ModuleResult {
	metrics.RecordModuleCompleted(string(m.Task()), "skipped")
	o.update(func(s *model.SessionSnapshot) { s.ModuleState = model.StateFinished })
	return m.Fallback()
}

// arm resets the per-attempt controls and the module part of the snapshot.
func (o *Orchestrator) arm(i int, task model.Task) module.Controls {
	for drained := false; !drained; {
		select {
		case <-o.transcripts:
		default:
			drained = true
		}
	}
	start := make(chan struct{})
	complete := make(chan struct{})

	o.mu.Lock()
	o.start = start
	o.complete = complete
	o.snap.Step = i + 1
	o.snap.Task = task
	o.snap.ModuleState = model.StateIdle
	o.snap.Remaining = int(task.Duration() / time.Second)
	o.snap.Connected = false
	o.snap.LastError = ""
	o.snap.Feedback = nil
	o.snap.UpdatedAt = o.clock()
	o.mu.Unlock()

	return module.Controls{Start: start, Complete: complete, Transcripts: o.transcripts}
}

func (o *Orchestrator) submit(ctx context.Context, rec *model.Record) model.RiskAssessment {
	o.update(func(s *model.SessionSnapshot) {
		s.Submission = model.SubmissionSubmitting
		s.ModuleState = model.StateFinished
		s.Connected = false
	})

	var (
		out    model.RiskAssessment
		report *model.BatchReport
		err    error
	)
	if o.analyzer != nil {
		report, err = o.analyzer.Analyze(ctx, rec.BatchPayload())
	}
	if err != nil && ctx.Err() != nil {
		return o.abandon(ctx)
	}

	status := model.SubmissionDone
	lastErr := ""
	if err != nil {
		o.logger.Error(ctx, "batch analysis failed", logger.String("session", o.id), logger.Error(err))
		out = o.aggregator.Degraded(scoring.FlagBackendFailure)
		status = model.SubmissionError
		lastErr = err.Error()
	} else {
		out = o.aggregator.Aggregate(rec, report)
	}

	metrics.RecordSessionOutcome(string(out.RiskBand))
	o.logger.Info(ctx, "session completed",
		logger.String("session", o.id),
		logger.String("band", string(out.RiskBand)),
		logger.Int("risk", out.RiskScore),
	)
	o.update(func(s *model.SessionSnapshot) {
		s.Submission = status
		s.LastError = lastErr
		a := out
		s.Assessment = &a
	})
	o.mu.Lock()
	o.assessment = &out
	o.mu.Unlock()
	return out
}

func (o *Orchestrator) abandon(ctx context.Context) model.RiskAssessment {
	o.logger.Info(context.WithoutCancel(ctx), "session abandoned", logger.String("session", o.id))
	o.update(func(s *model.SessionSnapshot) {
		s.Abandoned = true
		s.Connected = false
	})
	return model.RiskAssessment{}
}

// Start begins recording the armed module.
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.snap.ModuleState != model.StateArmed || o.start == nil {
		return fmt.Errorf("%w: %w", ErrNotActive, module.ErrNotArmed)
	}
	close(o.start)
	o.start = nil
	return nil
}

// CompleteEarly finishes the recording module before its countdown ends.
func (o *Orchestrator) CompleteEarly() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.snap.ModuleState != model.StateRecording || o.complete == nil {
		return fmt.Errorf("%w: %w", ErrNotActive, module.ErrNotRecording)
	}
	close(o.complete)
	o.complete = nil
	return nil
}

// Transcript forwards a speech-recognition result to the recording module.
// Results arriving faster than they are consumed are dropped.
func (o *Orchestrator) Transcript(text string, final bool) error {
	o.mu.RLock()
	state := o.snap.ModuleState
	o.mu.RUnlock()
	if state != model.StateRecording {
		return fmt.Errorf("%w: %w", ErrNotActive, module.ErrNotRecording)
	}
	select {
	case o.transcripts <- module.TranscriptEvent{Text: text, Final: final}:
	default:
		metrics.RecordQueueDrop("transcripts", "full")
	}
	return nil
}

// Retry re-arms a failed module.
func (o *Orchestrator) Retry() error { return o.decide(decisionRetry) }

// Skip records the fallback result for a failed module and moves on.
func (o *Orchestrator) Skip() error { return o.decide(decisionSkip) }

func (o *Orchestrator) decide(d decision) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.snap.ModuleState != model.StateFailed {
		return fmt.Errorf("%w: no failed module", ErrNotActive)
	}
	select {
	case o.decisions <- d:
	default:
		return fmt.Errorf("%w: decision already pending", ErrNotActive)
	}
	o.snap.ModuleState = model.StateIdle
	o.snap.UpdatedAt = o.clock()
	return nil
}

// Snapshot returns a copy of the session state.
func (o *Orchestrator) Snapshot() model.SessionSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s := o.snap
	s.Results = slices.Clone(o.snap.Results)
	if o.snap.Assessment != nil {
		a := *o.snap.Assessment
		a.Flags = slices.Clone(a.Flags)
		s.Assessment = &a
	}
	return s
}

// Result returns the assessment once the session has completed.
func (o *Orchestrator) Result() (model.RiskAssessment, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.assessment == nil {
		return model.RiskAssessment{}, false
	}
	return *o.assessment, true
}

func (o *Orchestrator) update(fn func(s *model.SessionSnapshot)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(&o.snap)
	o.snap.UpdatedAt = o.clock()
}

// observer feeds module events into the snapshot.
type observer struct{ o *Orchestrator }

func (ob observer) ModuleState(_ model.Task, state model.ModuleState, err error) {
	ob.o.update(func(s *model.SessionSnapshot) {
		s.ModuleState = state
		s.Connected = state == model.StateArmed || state == model.StateRecording
		if err != nil {
			s.LastError = err.Error()
		}
	})
	if state == model.StateArmed && ob.o.headless {
		_ = ob.o.Start()
	}
}

func (ob observer) Countdown(_ model.Task, remaining int) {
	ob.o.update(func(s *model.SessionSnapshot) { s.Remaining = remaining })
}

func (ob observer) Feedback(_ model.Task, fb feedback.Feedback) {
	ob.o.update(func(s *model.SessionSnapshot) { s.Feedback = fb })
}
