// Package module runs one timed exercise: it acquires a capture device,
// opens a telemetry link, waits for the caregiver to start, streams samples
// while a countdown runs, folds feedback through a pure reducer, and emits
// a typed result.
//
// The five exercises share one Controller; what differs lives in a Strategy.
package module

import (
	"context"
	"time"

	"github.com/okian/neurolens/internal/domain/feedback"
	"github.com/okian/neurolens/internal/domain/model"
)

// Link is the telemetry connection a module drives while it is active.
type Link interface {
	Connected() bool
	Ready() <-chan struct{}
	Done() <-chan struct{}
	Err() error
	Send(msg model.Outbound) bool
	Inbound() <-chan feedback.Feedback
	Close() error
}

// Dialer opens one Link per module run.
type Dialer interface {
	Open(ctx context.Context, task model.Task) Link
}

// DialFunc adapts a function to Dialer.
type DialFunc func(ctx context.Context, task model.Task) Link

// Open calls f.
func (f DialFunc) Open(ctx context.Context, task model.Task) Link { return f(ctx, task) }

// Profile is the static shape of an exercise.
type Profile struct {
	Task     model.Task
	Duration time.Duration
	// Mirror flips frames to match a mirrored on-screen preview.
	Mirror bool
	// Quality is the JPEG quality fraction for video tasks.
	Quality float64
	// TriggerDelay, when positive, delivers one TimerEvent that long after
	// recording starts.
	TriggerDelay time.Duration
}

// Event is one input to a Strategy reducer.
type Event interface{ isEvent() }

// FeedbackEvent carries a decoded analysis-service message.
type FeedbackEvent struct{ Feedback feedback.Feedback }

// TranscriptEvent carries a speech-recognition result from the caregiver's device.
type TranscriptEvent struct {
	Text  string
	Final bool
}

// TimerEvent fires once, Profile.TriggerDelay after recording starts.
type TimerEvent struct{}

func (FeedbackEvent) isEvent()   {}
func (TranscriptEvent) isEvent() {}
func (TimerEvent) isEvent()      {}

// Finish describes how recording ended.
type Finish struct {
	Started time.Time
	Ended   time.Time
	Early   bool
	Skipped bool
}

// Elapsed returns the recording time in seconds.
func (f Finish) Elapsed() float64 { return f.Ended.Sub(f.Started).Seconds() }

// Strategy is the per-exercise behavior plugged into a Controller. Reduce
// must be pure: it returns the next state plus any control messages to send.
type Strategy[S any] interface {
	Profile() Profile
	Init(started time.Time) S
	Reduce(state S, ev Event) (S, []model.Outbound)
	Finish(state S, f Finish) model.ModuleResult
}

// Validator is implemented by strategies with preconditions checked before
// any device is acquired.
type Validator interface {
	Validate() error
}
