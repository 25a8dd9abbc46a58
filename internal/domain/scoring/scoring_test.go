package scoring_test

import (
	"math"
	"testing"

	"github.com/okian/neurolens/internal/domain/model"
	scoring "github.com/okian/neurolens/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func recordWith(scores map[model.Task]model.Score) *model.Record {
	rec := model.NewRecord(24)
	for _, task := range model.Sequence() {
		_ = rec.Merge(model.ModuleResult{Task: task, Score: scores[task]})
	}
	return rec
}

func engagementReport(engagement float64, class, focus string) *model.BatchReport {
	return &model.BatchReport{
		Scores:          model.BatchScores{EngagementScore: &engagement},
		Classifications: model.Classifications{EngagementClass: class, DominantFocus: focus},
		Interpretation:  "Engagement level was moderate.",
	}
}

func TestModuleRules(t *testing.T) {
	Convey("Given the per-module score rules", t, func() {
		Convey("Then eye contact should always score 0", func() {
			So(scoring.EyeContactScore(), ShouldEqual, model.ScoreTypical)
		})

		Convey("Then name response should report fixed latency only on response", func() {
			s, latency := scoring.NameResponseScore(true)
			So(s, ShouldEqual, model.ScoreTypical)
			So(*latency, ShouldEqual, 1500)

			s, latency = scoring.NameResponseScore(false)
			So(s, ShouldEqual, model.ScoreConcern)
			So(latency, ShouldBeNil)
		})

		Convey("Then vocalization should bucket at 20 and 50 percent", func() {
			cases := []struct {
				pct   float64
				score model.Score
			}{
				{0, 2}, {19.99, 2}, {20, 1}, {49.9, 1}, {50, 0}, {100, 0},
			}
			for _, c := range cases {
				s, index := scoring.VocalizationScore(c.pct)
				So(s, ShouldEqual, c.score)
				So(index, ShouldAlmostEqual, c.pct/100)
			}
		})

		Convey("Then gestures should depend on hands", func() {
			So(scoring.GestureScore(true), ShouldEqual, model.ScoreTypical)
			So(scoring.GestureScore(false), ShouldEqual, model.ScoreConcern)
		})

		Convey("Then repetitive should trip strictly above 5.0", func() {
			So(scoring.RepetitiveScore(5.0), ShouldEqual, model.ScoreTypical)
			So(scoring.RepetitiveScore(5.01), ShouldEqual, model.ScoreConcern)
			So(scoring.RepetitiveScore(0), ShouldEqual, model.ScoreTypical)
		})
	})
}

func TestAggregator_Aggregate(t *testing.T) {
	Convey("Given a default aggregator", t, func() {
		agg := scoring.NewAggregator()

		Convey("When every manual module scores 2 and engagement is 0", func() {
			rec := recordWith(map[model.Task]model.Score{
				model.TaskNameResponse: 2,
				model.TaskVocalization: 2,
				model.TaskGestures:     2,
				model.TaskRepetitive:   2,
			})
			out := agg.Aggregate(rec, engagementReport(0, model.EngagementModerate, model.FocusSocial))

			Convey("Then every domain and the composite should be 100", func() {
				So(out.DomainScores, ShouldResemble, model.DomainScores{Social: 100, Response: 100, Vocal: 100, Gestures: 100, Repetitive: 100})
				So(out.RiskScore, ShouldEqual, 100)
				So(out.RiskBand, ShouldEqual, model.BandHigh)
				So(out.Flags, ShouldContain, scoring.FlagNoNameResponse)
				So(out.Flags, ShouldContain, scoring.FlagLimitedVocal)
				So(out.Flags, ShouldContain, scoring.FlagRepetitive)
				So(out.Flags, ShouldContain, scoring.FlagNoGestures)
				So(out.AIInterpretation, ShouldEqual, "Engagement level was moderate.")
			})
		})

		Convey("When all scores are 0 and engagement is 1", func() {
			out := agg.Aggregate(recordWith(nil), engagementReport(1, model.EngagementHigh, model.FocusMixed))

			Convey("Then the result should be Low with no flags", func() {
				So(out.RiskScore, ShouldEqual, 0)
				So(out.RiskBand, ShouldEqual, model.BandLow)
				So(out.Flags, ShouldNotBeNil)
				So(out.Flags, ShouldBeEmpty)
			})
		})

		Convey("When the composite lands exactly on 30", func() {
			rec := recordWith(map[model.Task]model.Score{model.TaskNameResponse: 2, model.TaskGestures: 2})
			out := agg.Aggregate(rec, engagementReport(1, model.EngagementHigh, ""))

			Convey("Then the band should be Moderate", func() {
				So(out.RiskScore, ShouldEqual, 30)
				So(out.RiskBand, ShouldEqual, model.BandModerate)
			})
		})

		Convey("When the composite lands exactly on 60", func() {
			rec := recordWith(map[model.Task]model.Score{model.TaskNameResponse: 2, model.TaskVocalization: 2, model.TaskRepetitive: 2})
			out := agg.Aggregate(rec, engagementReport(1, model.EngagementHigh, ""))

			Convey("Then the band should be High", func() {
				So(out.RiskScore, ShouldEqual, 60)
				So(out.RiskBand, ShouldEqual, model.BandHigh)
			})
		})

		Convey("When the report classifies low engagement and geometric focus", func() {
			out := agg.Aggregate(recordWith(nil), engagementReport(0.2, model.EngagementLow, model.FocusGeometric))

			Convey("Then both AI flags should be raised", func() {
				So(out.Flags, ShouldResemble, []string{scoring.FlagLowEngagement, scoring.FlagGeometricFocus})
				So(out.DomainScores.Social, ShouldAlmostEqual, 80)
				So(out.RiskScore, ShouldEqual, 24)
			})
		})

		Convey("When the report has no engagement score", func() {
			rec := model.NewRecord(24)
			_ = rec.Merge(model.ModuleResult{Task: model.TaskEyeContact, Score: 2})
			report := &model.BatchReport{Error: "Insufficient data collected.", Interpretation: "Insufficient data."}
			out := agg.Aggregate(rec, report)

			Convey("Then social should fall back to the eye contact score", func() {
				So(out.DomainScores.Social, ShouldEqual, 100)
				So(out.RiskScore, ShouldEqual, 30)
				So(out.AIInterpretation, ShouldEqual, "Insufficient data.")
			})
		})

		Convey("When there is no report at all", func() {
			out := agg.Aggregate(recordWith(map[model.Task]model.Score{model.TaskVocalization: 1}), nil)
			So(out.DomainScores.Vocal, ShouldEqual, 50)
			So(out.RiskScore, ShouldEqual, 10)
			So(out.RiskBand, ShouldEqual, model.BandLow)
			So(out.AIInterpretation, ShouldBeEmpty)
		})

		Convey("When sweeping every score combination and engagement value", func() {
			seen := 0
			for code := 0; code < 243; code++ {
				scores := map[model.Task]model.Score{}
				c := code
				for _, task := range model.Sequence() {
					scores[task] = model.Score(c % 3)
					c /= 3
				}
				for e := 0; e <= 20; e++ {
					report := engagementReport(float64(e)/20, "", "")
					first := agg.Aggregate(recordWith(scores), report)
					second := agg.Aggregate(recordWith(scores), report)
					if first.RiskScore != second.RiskScore || first.RiskScore < 0 || first.RiskScore > 100 {
						t.Fatalf("risk %d/%d out of range or unstable for %v e=%d", first.RiskScore, second.RiskScore, scores, e)
					}
					seen++
				}
			}

			Convey("Then every composite should be deterministic and within [0,100]", func() {
				So(seen, ShouldEqual, 243*21)
			})
		})
	})
}

func TestAggregator_Options(t *testing.T) {
	Convey("Given custom weights", t, func() {
		Convey("When they sum to 100", func() {
			agg := scoring.NewAggregator(scoring.WithWeights(scoring.Weights{Social: 20, Response: 20, Vocal: 20, Repetitive: 20, Gestures: 20}))
			out := agg.Aggregate(recordWith(map[model.Task]model.Score{model.TaskGestures: 2}), nil)
			So(out.RiskScore, ShouldEqual, 20)
		})

		Convey("When they do not sum to 100", func() {
			agg := scoring.NewAggregator(scoring.WithWeights(scoring.Weights{Social: 90, Response: 90}))
			So(agg.Weights(), ShouldResemble, scoring.DefaultWeights())
		})
	})
}

func TestAggregator_Degraded(t *testing.T) {
	Convey("Given a failed batch call", t, func() {
		out := scoring.NewAggregator().Degraded("")

		Convey("Then the assessment should be the Error band with one flag", func() {
			So(out.RiskBand, ShouldEqual, model.BandError)
			So(out.RiskScore, ShouldEqual, 0)
			So(out.Flags, ShouldResemble, []string{scoring.FlagBackendFailure})
			So(out.DomainScores, ShouldResemble, model.DomainScores{})
		})
	})
}

func TestBandFor(t *testing.T) {
	Convey("Given composite values around the thresholds", t, func() {
		So(scoring.BandFor(0), ShouldEqual, model.BandLow)
		So(scoring.BandFor(29.999), ShouldEqual, model.BandLow)
		So(scoring.BandFor(30), ShouldEqual, model.BandModerate)
		So(scoring.BandFor(59.999), ShouldEqual, model.BandModerate)
		So(scoring.BandFor(60), ShouldEqual, model.BandHigh)
		So(scoring.BandFor(math.Inf(1)), ShouldEqual, model.BandHigh)
	})
}
