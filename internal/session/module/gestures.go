package module

import (
	"time"

	"github.com/okian/neurolens/internal/domain/feedback"
	"github.com/okian/neurolens/internal/domain/model"
	"github.com/okian/neurolens/internal/domain/scoring"
)

// GesturesState holds the latest hand detection.
type GesturesState struct {
	HandsDetected bool
}

// Gestures watches for hands in frame while the caregiver prompts pointing
// and waving.
type Gestures struct{}

func (Gestures) Profile() Profile {
	return Profile{Task: model.TaskGestures, Duration: model.TaskGestures.Duration(), Quality: 0.5}
}

func (Gestures) Init(time.Time) GesturesState { return GesturesState{} }

func (Gestures) Reduce(s GesturesState, ev Event) (GesturesState, []model.Outbound) {
	if fe, ok := ev.(FeedbackEvent); ok {
		if fb, ok := fe.Feedback.(feedback.Gestures); ok {
			s.HandsDetected = fb.HandsDetected
		}
	}
	return s, nil
}

func (Gestures) Finish(s GesturesState, f Finish) model.ModuleResult {
	return model.ModuleResult{
		Task:             model.TaskGestures,
		Score:            scoring.GestureScore(s.HandsDetected),
		DurationSec:      f.Elapsed(),
		HandsDetected:    s.HandsDetected,
		PointingObserved: s.HandsDetected,
	}
}
