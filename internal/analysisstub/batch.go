package analysisstub

import (
	"math"
	"strings"

	"github.com/okian/neurolens/internal/domain/model"
)

// Batch analysis thresholds.
const (
	minBatchFrames       = 40
	dominantFocusShare   = 0.7
	highEngagement       = 0.8
	moderateEngagement   = 0.5
	flexibleShifts       = 5
	moderateShifts       = 2
	insufficientDataText = "Insufficient data collected. Please ensure the participant stays within camera frame and retry the demo."
)

// Flexibility classifications.
const (
	FlexibilityHigh     = "flexible attention"
	FlexibilityModerate = "moderate flexibility"
	FlexibilityLow      = "low flexibility"
)

// AnalyzeBatch scores the visual-preference metrics of one session.
func AnalyzeBatch(raw map[string]float64) model.BatchReport {
	total := raw[model.MetricTotalFrames]
	if total < minBatchFrames {
		return model.BatchReport{
			Error:          insufficientDataText,
			Interpretation: "Insufficient data.",
		}
	}
	face := raw[model.MetricFramesFaceDetected]
	shifts := raw[model.MetricSideSwitchCount]

	engagement := face / total
	var social, geometric float64
	if face > 0 {
		social = raw[model.MetricFramesSocialSide] / face
		geometric = raw[model.MetricFramesGeometricSide] / face
	}

	var (
		cls     model.Classifications
		summary strings.Builder
	)
	switch {
	case geometric > dominantFocusShare:
		cls.DominantFocus = model.FocusGeometric
		summary.WriteString("In this demo, the participant looked more at geometric visual patterns compared to social visuals. ")
	case social > dominantFocusShare:
		cls.DominantFocus = model.FocusSocial
		summary.WriteString("In this demo, the participant showed more focus on social visual content compared to geometric patterns. ")
	default:
		cls.DominantFocus = model.FocusMixed
		summary.WriteString("The participant showed a balanced interest between social and geometric visuals. ")
	}
	switch {
	case engagement > highEngagement:
		cls.EngagementClass = model.EngagementHigh
		summary.WriteString("Engagement level was consistently high throughout the demo. ")
	case engagement > moderateEngagement:
		cls.EngagementClass = model.EngagementModerate
		summary.WriteString("Engagement level was moderate with occasional periods of disengagement. ")
	default:
		cls.EngagementClass = model.EngagementLow
		summary.WriteString("Engagement was relatively low, with several periods where the participant was not detected in the camera frame. ")
	}
	switch {
	case shifts >= flexibleShifts:
		cls.AttentionFlexibility = FlexibilityHigh
		summary.WriteString("Frequent visual shifts were observed between the two types of content. ")
	case shifts >= moderateShifts:
		cls.AttentionFlexibility = FlexibilityModerate
		summary.WriteString("Some natural shifting of visual attention was observed. ")
	default:
		cls.AttentionFlexibility = FlexibilityLow
		summary.WriteString("Very few attention shifts were observed during the demo. ")
	}
	summary.WriteString("This demo reflects only momentary behavior during a short session and is not a diagnostic tool. " +
		"For real behavioral concerns, consult a qualified professional.")

	return model.BatchReport{
		Metrics: raw,
		Scores: model.BatchScores{
			EngagementScore:     ptr(round2(engagement)),
			SocialPreference:    ptr(round2(social)),
			GeometricPreference: ptr(round2(geometric)),
			AttentionShifts:     ptr(shifts),
		},
		Classifications: cls,
		Interpretation:  summary.String(),
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func ptr[T any](v T) *T { return &v }
