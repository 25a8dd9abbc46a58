package model

// CommandResetYaw re-baselines head-turn detection at the moment the name is called.
const CommandResetYaw = "reset_yaw"

// Outbound is one telemetry message for the analysis service. Exactly one of
// Image, Command or Audio is set.
type Outbound struct {
	Task    Task   `json:"task"`
	Image   string `json:"image,omitempty"`
	Command string `json:"command,omitempty"`
	Audio   string `json:"audio,omitempty"`
}

// BatchScores are the numeric parts of a batch report. Pointers distinguish
// absent values from zero.
type BatchScores struct {
	EngagementScore     *float64 `json:"engagementScore,omitempty"`
	SocialPreference    *float64 `json:"socialPreference,omitempty"`
	GeometricPreference *float64 `json:"geometricPreference,omitempty"`
	AttentionShifts     *float64 `json:"attentionShifts,omitempty"`
}

// Classifications are the qualitative parts of a batch report.
type Classifications struct {
	DominantFocus        string `json:"dominantFocus,omitempty"`
	EngagementClass      string `json:"engagementClass,omitempty"`
	AttentionFlexibility string `json:"attentionFlexibility,omitempty"`
}

// Classification values the aggregator reacts to.
const (
	FocusGeometric     = "geometric"
	FocusSocial        = "social"
	FocusMixed         = "mixed/no strong preference"
	EngagementHigh     = "high engagement"
	EngagementModerate = "moderate engagement"
	EngagementLow      = "low engagement"
)

// BatchReport is the structured reply of the batch analysis call.
type BatchReport struct {
	Error           string             `json:"error,omitempty"`
	Metrics         map[string]float64 `json:"metrics,omitempty"`
	Scores          BatchScores        `json:"scores"`
	Classifications Classifications    `json:"classifications"`
	Interpretation  string             `json:"interpretation,omitempty"`
}

// HasEngagement reports whether the report carries an engagement score.
func (b *BatchReport) HasEngagement() bool {
	return b != nil && b.Scores.EngagementScore != nil
}
