package module

import (
	"time"

	"github.com/okian/neurolens/internal/domain/feedback"
	"github.com/okian/neurolens/internal/domain/model"
	"github.com/okian/neurolens/internal/domain/scoring"
)

// VocalizationState keeps the service's running speech share.
type VocalizationState struct {
	VocalPercentage float64
	Chunks          int
}

// Vocalization streams microphone blocks and scores the final share of
// blocks the service classified as speech.
type Vocalization struct{}

func (Vocalization) Profile() Profile {
	return Profile{Task: model.TaskVocalization, Duration: model.TaskVocalization.Duration()}
}

func (Vocalization) Init(time.Time) VocalizationState { return VocalizationState{} }

func (Vocalization) Reduce(s VocalizationState, ev Event) (VocalizationState, []model.Outbound) {
	if fe, ok := ev.(FeedbackEvent); ok {
		if fb, ok := fe.Feedback.(feedback.Vocalization); ok {
			s.VocalPercentage = fb.VocalPercentage
			s.Chunks = fb.TotalChunks
		}
	}
	return s, nil
}

func (Vocalization) Finish(s VocalizationState, f Finish) model.ModuleResult {
	score, index := scoring.VocalizationScore(s.VocalPercentage)
	return model.ModuleResult{
		Task:            model.TaskVocalization,
		Score:           score,
		DurationSec:     f.Elapsed(),
		VocalPercentage: s.VocalPercentage,
		ActivityIndex:   index,
	}
}
