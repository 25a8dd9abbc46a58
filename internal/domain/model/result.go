package model

import (
	"fmt"
	"maps"
)

// Raw visual-preference metric keys sent to the batch analysis call.
const (
	MetricTotalFrames         = "totalFrames"
	MetricFramesFaceDetected  = "framesFaceDetected"
	MetricFramesSocialSide    = "framesSocialSide"
	MetricFramesGeometricSide = "framesGeometricSide"
	MetricSideSwitchCount     = "sideSwitchCount"
	MetricStartTime           = "startTime"
	MetricEndTime             = "endTime"
	MetricDurationSec         = "durationSec"
)

// FixedResponseLatencyMS is reported for every detected name response.
const FixedResponseLatencyMS = 1500

// ModuleResult is the immutable output of one exercise. Only the fields
// belonging to Task are meaningful.
type ModuleResult struct {
	Task        Task    `json:"task"`
	Score       Score   `json:"score"`
	DurationSec float64 `json:"durationSec"`
	Skipped     bool    `json:"skipped,omitempty"`

	// name_response
	NameTriggered bool `json:"nameTriggered,omitempty"`
	Responded     bool `json:"responded,omitempty"`
	LatencyMS     *int `json:"latencyMs,omitempty"`

	// vocalization
	VocalPercentage float64 `json:"vocalPercentage,omitempty"`
	ActivityIndex   float64 `json:"activityIndex,omitempty"`

	// gestures
	HandsDetected    bool `json:"handsDetected,omitempty"`
	PointingObserved bool `json:"pointingObserved,omitempty"`

	// repetitive
	MovementScore float64 `json:"movementScore,omitempty"`

	RawMetrics map[string]float64 `json:"rawMetrics,omitempty"`
}

// Validate checks the task tag and score range.
func (r *ModuleResult) Validate() error {
	if r.Task.Step() == 0 {
		return fmt.Errorf("%w: %q", ErrUnknownTask, r.Task)
	}
	if !r.Score.Valid() {
		return fmt.Errorf("%w: %s got %d", ErrInvalidScore, r.Task, r.Score)
	}
	return nil
}

// Record is the merged session record. Each module owns a distinct set of
// fields; RawMetrics is combined key by key across modules.
type Record struct {
	AgeMonths int `json:"ageMonths"`

	EyeContactScore    *Score  `json:"eyeContactScore,omitempty"`
	EyeContactDuration float64 `json:"eyeContactDurationSec,omitempty"`

	ResponseToNameScore *Score `json:"responseToNameScore,omitempty"`
	ResponseLatencyMS   *int   `json:"responseLatencyMs"`
	NameTriggered       bool   `json:"nameTriggered"`

	VocalizationScore  *Score  `json:"vocalizationScore,omitempty"`
	VocalActivityIndex float64 `json:"vocalizationActivityIndex"`

	GestureScore     *Score `json:"gestureScore,omitempty"`
	PointingObserved bool   `json:"pointingObserved"`

	RepetitiveBehaviorScore *Score  `json:"repetitiveBehaviorScore,omitempty"`
	MovementScore           float64 `json:"movementScore"`

	RawMetrics map[string]float64 `json:"rawMetrics,omitempty"`

	Skipped []Task `json:"skipped,omitempty"`
}

// NewRecord creates an empty record for a child of the given age.
func NewRecord(ageMonths int) *Record {
	return &Record{AgeMonths: ageMonths}
}

// Merge folds a module result into the record. A task can be merged once;
// overlapping raw metric keys take the later value.
func (r *Record) Merge(res ModuleResult) error {
	if err := res.Validate(); err != nil {
		return err
	}
	if r.Has(res.Task) {
		return fmt.Errorf("%w: %s", ErrDuplicateModule, res.Task)
	}
	score := res.Score
	switch res.Task {
	case TaskEyeContact:
		r.EyeContactScore = &score
		r.EyeContactDuration = res.DurationSec
	case TaskNameResponse:
		r.ResponseToNameScore = &score
		r.NameTriggered = res.NameTriggered
		if res.LatencyMS != nil {
			v := *res.LatencyMS
			r.ResponseLatencyMS = &v
		}
	case TaskVocalization:
		r.VocalizationScore = &score
		r.VocalActivityIndex = res.ActivityIndex
	case TaskGestures:
		r.GestureScore = &score
		r.PointingObserved = res.PointingObserved
	case TaskRepetitive:
		r.RepetitiveBehaviorScore = &score
		r.MovementScore = res.MovementScore
	}
	if len(res.RawMetrics) > 0 {
		if r.RawMetrics == nil {
			r.RawMetrics = make(map[string]float64, len(res.RawMetrics))
		}
		maps.Copy(r.RawMetrics, res.RawMetrics)
	}
	if res.Skipped {
		r.Skipped = append(r.Skipped, res.Task)
	}
	return nil
}

// Has reports whether a result for t has been merged.
func (r *Record) Has(t Task) bool {
	_, ok := r.ScoreOf(t)
	return ok
}

// ScoreOf returns the merged score for t.
func (r *Record) ScoreOf(t Task) (Score, bool) {
	var p *Score
	switch t {
	case TaskEyeContact:
		p = r.EyeContactScore
	case TaskNameResponse:
		p = r.ResponseToNameScore
	case TaskVocalization:
		p = r.VocalizationScore
	case TaskGestures:
		p = r.GestureScore
	case TaskRepetitive:
		p = r.RepetitiveBehaviorScore
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Complete reports whether every module has been merged.
func (r *Record) Complete() bool {
	for _, t := range Sequence() {
		if !r.Has(t) {
			return false
		}
	}
	return true
}

// BatchPayload returns the raw visual-preference metrics for the batch
// analysis call, zero-filled for any key no module produced.
func (r *Record) BatchPayload() map[string]float64 {
	out := map[string]float64{
		MetricTotalFrames:         0,
		MetricFramesFaceDetected:  0,
		MetricFramesSocialSide:    0,
		MetricFramesGeometricSide: 0,
		MetricSideSwitchCount:     0,
		MetricStartTime:           0,
		MetricEndTime:             0,
		MetricDurationSec:         0,
	}
	maps.Copy(out, r.RawMetrics)
	return out
}

// Clone returns a deep copy safe to hand to other goroutines.
func (r *Record) Clone() *Record {
	c := *r
	c.EyeContactScore = cloneScore(r.EyeContactScore)
	c.ResponseToNameScore = cloneScore(r.ResponseToNameScore)
	c.VocalizationScore = cloneScore(r.VocalizationScore)
	c.GestureScore = cloneScore(r.GestureScore)
	c.RepetitiveBehaviorScore = cloneScore(r.RepetitiveBehaviorScore)
	if r.ResponseLatencyMS != nil {
		v := *r.ResponseLatencyMS
		c.ResponseLatencyMS = &v
	}
	c.RawMetrics = maps.Clone(r.RawMetrics)
	c.Skipped = append([]Task(nil), r.Skipped...)
	return &c
}

func cloneScore(s *Score) *Score {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
