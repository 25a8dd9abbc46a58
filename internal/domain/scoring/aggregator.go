package scoring

import (
	"math"

	"github.com/okian/neurolens/internal/domain/model"
)

// Band thresholds on the unrounded composite.
const (
	ModerateThreshold = 30.0
	HighThreshold     = 60.0
	domainScale       = 50.0
)

// Flag texts.
const (
	FlagLowEngagement  = "Low engagement detected by AI"
	FlagGeometricFocus = "Strong preference for geometric patterns detected"
	FlagNoNameResponse = "No response to name"
	FlagLimitedVocal   = "Limited vocalization"
	FlagRepetitive     = "Repetitive behaviors observed"
	FlagNoGestures     = "Lack of gestures/joint attention"
	FlagBackendFailure = "Backend connection failed"
)

// Weights are the per-domain percentages of the composite. They must sum to 100.
type Weights struct {
	Social     float64
	Response   float64
	Vocal      float64
	Repetitive float64
	Gestures   float64
}

// DefaultWeights returns 30/20/20/20/10.
func DefaultWeights() Weights {
	return Weights{Social: 30, Response: 20, Vocal: 20, Repetitive: 20, Gestures: 10}
}

func (w Weights) valid() bool {
	for _, v := range []float64{w.Social, w.Response, w.Vocal, w.Repetitive, w.Gestures} {
		if v < 0 || math.IsNaN(v) {
			return false
		}
	}
	return math.Abs(w.Social+w.Response+w.Vocal+w.Repetitive+w.Gestures-100) < 1e-9
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithWeights replaces the composite weights. Invalid weights are ignored.
func WithWeights(w Weights) Option {
	return func(a *Aggregator) {
		if w.valid() {
			a.weights = w
		}
	}
}

// Aggregator computes the final RiskAssessment. It holds no mutable state and
// is safe for concurrent use.
type Aggregator struct {
	weights Weights
}

// NewAggregator creates an aggregator with default weights.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Weights returns the active weights.
func (a *Aggregator) Weights() Weights { return a.weights }

// Aggregate combines the merged record with the batch report, which may be
// nil. Modules missing from the record count as score 0.
func (a *Aggregator) Aggregate(rec *model.Record, report *model.BatchReport) model.RiskAssessment {
	if rec == nil {
		rec = model.NewRecord(0)
	}
	score := func(t model.Task) model.Score {
		s, _ := rec.ScoreOf(t)
		return s
	}

	flags := make([]string, 0, 6)
	ds := model.DomainScores{
		Response:   float64(score(model.TaskNameResponse)) * domainScale,
		Vocal:      float64(score(model.TaskVocalization)) * domainScale,
		Gestures:   float64(score(model.TaskGestures)) * domainScale,
		Repetitive: float64(score(model.TaskRepetitive)) * domainScale,
	}

	if report.HasEngagement() {
		engagement := clamp01(*report.Scores.EngagementScore)
		ds.Social = (1 - engagement) * 100
		if report.Classifications.EngagementClass == model.EngagementLow {
			flags = append(flags, FlagLowEngagement)
		}
		if report.Classifications.DominantFocus == model.FocusGeometric {
			flags = append(flags, FlagGeometricFocus)
		}
	} else {
		ds.Social = float64(score(model.TaskEyeContact)) * domainScale
	}

	w := a.weights
	risk := (ds.Social*w.Social + ds.Response*w.Response + ds.Vocal*w.Vocal +
		ds.Repetitive*w.Repetitive + ds.Gestures*w.Gestures) / 100

	if score(model.TaskNameResponse) == model.ScoreConcern {
		flags = append(flags, FlagNoNameResponse)
	}
	if score(model.TaskVocalization) == model.ScoreConcern {
		flags = append(flags, FlagLimitedVocal)
	}
	if score(model.TaskRepetitive) == model.ScoreConcern {
		flags = append(flags, FlagRepetitive)
	}
	if score(model.TaskGestures) == model.ScoreConcern {
		flags = append(flags, FlagNoGestures)
	}

	out := model.RiskAssessment{
		RiskScore:    int(math.Round(risk)),
		RiskBand:     BandFor(risk),
		Flags:        flags,
		DomainScores: ds,
	}
	if report != nil {
		out.AIInterpretation = report.Interpretation
	}
	return out
}

// Degraded is the terminal assessment used when the batch call fails.
func (a *Aggregator) Degraded(reason string) model.RiskAssessment {
	if reason == "" {
		reason = FlagBackendFailure
	}
	return model.RiskAssessment{
		RiskScore: 0,
		RiskBand:  model.BandError,
		Flags:     []string{reason},
	}
}

// BandFor buckets an unrounded composite.
func BandFor(risk float64) model.Band {
	switch {
	case risk < ModerateThreshold:
		return model.BandLow
	case risk < HighThreshold:
		return model.BandModerate
	default:
		return model.BandHigh
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
