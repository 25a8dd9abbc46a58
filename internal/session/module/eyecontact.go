package module

import (
	"math"
	"time"

	"github.com/okian/neurolens/internal/domain/feedback"
	"github.com/okian/neurolens/internal/domain/model"
	"github.com/okian/neurolens/internal/domain/scoring"
)

// framesPerSideSwitch approximates one gaze switch per this many frames.
const framesPerSideSwitch = 30

// EyeContactState counts frames by what the service saw in them.
type EyeContactState struct {
	Started   time.Time
	Total     int
	Face      int
	Social    int
	Geometric int
}

// EyeContact is the visual-preference exercise. It scores nothing locally
// and forwards its frame counters to the batch analysis call.
type EyeContact struct{}

func (EyeContact) Profile() Profile {
	return Profile{Task: model.TaskEyeContact, Duration: model.TaskEyeContact.Duration(), Quality: 0.5}
}

func (EyeContact) Init(started time.Time) EyeContactState {
	return EyeContactState{Started: started}
}

func (EyeContact) Reduce(s EyeContactState, ev Event) (EyeContactState, []model.Outbound) {
	fe, ok := ev.(FeedbackEvent)
	if !ok {
		return s, nil
	}
	fb, ok := fe.Feedback.(feedback.EyeContact)
	if !ok {
		return s, nil
	}
	s.Total++
	if !fb.FaceDetected {
		return s, nil
	}
	s.Face++
	switch fb.CurrentSide {
	case feedback.SideSocial:
		s.Social++
	case feedback.SideGeometric:
		s.Geometric++
	}
	return s, nil
}

func (EyeContact) Finish(s EyeContactState, f Finish) model.ModuleResult {
	elapsed := f.Elapsed()
	return model.ModuleResult{
		Task:        model.TaskEyeContact,
		Score:       scoring.EyeContactScore(),
		DurationSec: elapsed,
		RawMetrics: map[string]float64{
			model.MetricTotalFrames:         float64(s.Total),
			model.MetricFramesFaceDetected:  float64(s.Face),
			model.MetricFramesSocialSide:    float64(s.Social),
			model.MetricFramesGeometricSide: float64(s.Geometric),
			model.MetricSideSwitchCount:     math.Floor(float64(s.Total) / framesPerSideSwitch),
			model.MetricStartTime:           float64(f.Started.UnixMilli()),
			model.MetricEndTime:             float64(f.Ended.UnixMilli()),
			model.MetricDurationSec:         elapsed,
		},
	}
}
