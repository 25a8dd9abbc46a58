package module

import (
	"time"

	"github.com/okian/neurolens/internal/domain/feedback"
	"github.com/okian/neurolens/internal/domain/model"
	"github.com/okian/neurolens/internal/domain/scoring"
)

// RepetitiveState holds the service's latest accumulated movement.
type RepetitiveState struct {
	MovementScore float64
}

// Repetitive measures accumulated body movement.
type Repetitive struct{}

func (Repetitive) Profile() Profile {
	return Profile{Task: model.TaskRepetitive, Duration: model.TaskRepetitive.Duration(), Quality: 0.5}
}

func (Repetitive) Init(time.Time) RepetitiveState { return RepetitiveState{} }

func (Repetitive) Reduce(s RepetitiveState, ev Event) (RepetitiveState, []model.Outbound) {
	if fe, ok := ev.(FeedbackEvent); ok {
		if fb, ok := fe.Feedback.(feedback.Repetitive); ok {
			s.MovementScore = fb.MovementScore
		}
	}
	return s, nil
}

func (Repetitive) Finish(s RepetitiveState, f Finish) model.ModuleResult {
	return model.ModuleResult{
		Task:          model.TaskRepetitive,
		Score:         scoring.RepetitiveScore(s.MovementScore),
		DurationSec:   f.Elapsed(),
		MovementScore: s.MovementScore,
	}
}
