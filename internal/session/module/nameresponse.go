package module

import (
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/okian/neurolens/internal/domain/feedback"
	"github.com/okian/neurolens/internal/domain/model"
	"github.com/okian/neurolens/internal/domain/scoring"
)

// DefaultNameFallbackDelay triggers the name cue when no speech
// recognition is available.
const DefaultNameFallbackDelay = 3 * time.Second

// NameResponseState tracks the name cue and the latest head-turn report.
type NameResponseState struct {
	Triggered   bool
	TriggeredAt time.Time
	Responded   bool
	Feedback    int
}

// NameResponse is the response-to-name exercise. The caregiver calls the
// child's name; once it is recognized (or the fallback delay elapses) the
// service yaw reference is reset. The last head-turn report is scored.
type NameResponse struct {
	ChildName string
	// SpeechRecognition is false when no transcripts will arrive; the cue
	// then fires after FallbackDelay.
	SpeechRecognition bool
	FallbackDelay     time.Duration
	// Now stamps the trigger time; time.Now when nil.
	Now func() time.Time
}

var _ Validator = NameResponse{}

// Validate requires a child name.
func (n NameResponse) Validate() error {
	if strings.TrimSpace(n.ChildName) == "" {
		return ErrChildNameRequired
	}
	return nil
}

func (n NameResponse) Profile() Profile {
	p := Profile{
		Task:     model.TaskNameResponse,
		Duration: model.TaskNameResponse.Duration(),
		Mirror:   true,
		Quality:  0.7,
	}
	if !n.SpeechRecognition {
		p.TriggerDelay = n.FallbackDelay
		if p.TriggerDelay <= 0 {
			p.TriggerDelay = DefaultNameFallbackDelay
		}
	}
	return p
}

func (NameResponse) Init(time.Time) NameResponseState { return NameResponseState{} }

func (n NameResponse) Reduce(s NameResponseState, ev Event) (NameResponseState, []model.Outbound) {
	switch e := ev.(type) {
	case TranscriptEvent:
		if !e.Final || !n.Matches(e.Text) {
			return s, nil
		}
		return n.trigger(s)
	case TimerEvent:
		return n.trigger(s)
	case FeedbackEvent:
		fb, ok := e.Feedback.(feedback.NameResponse)
		if !ok {
			return s, nil
		}
		s.Feedback++
		s.Responded = fb.HeadTurnDetected
	}
	return s, nil
}

func (n NameResponse) trigger(s NameResponseState) (NameResponseState, []model.Outbound) {
	if s.Triggered {
		return s, nil
	}
	s.Triggered = true
	if n.Now != nil {
		s.TriggeredAt = n.Now()
	} else {
		s.TriggeredAt = time.Now()
	}
	return s, []model.Outbound{{Task: model.TaskNameResponse, Command: model.CommandResetYaw}}
}

// Matches reports whether a transcript contains the child's name, ignoring
// case.
func (n NameResponse) Matches(transcript string) bool {
	name := strings.TrimSpace(n.ChildName)
	if name == "" {
		return false
	}
	fold := cases.Fold()
	return strings.Contains(fold.String(strings.TrimSpace(transcript)), fold.String(name))
}

func (NameResponse) Finish(s NameResponseState, f Finish) model.ModuleResult {
	score, latency := scoring.NameResponseScore(s.Responded)
	return model.ModuleResult{
		Task:          model.TaskNameResponse,
		Score:         score,
		DurationSec:   f.Elapsed(),
		NameTriggered: s.Triggered,
		Responded:     s.Responded,
		LatencyMS:     latency,
	}
}
