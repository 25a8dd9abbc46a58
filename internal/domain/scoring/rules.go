// Package scoring holds the per-module score rules and the Aggregator that
// turns five module outcomes into one risk assessment.
package scoring

import "github.com/okian/neurolens/internal/domain/model"

// Module rule thresholds.
const (
	RepetitiveThreshold = 5.0
	VocalLowPercent     = 20.0
	VocalMidPercent     = 50.0
)

// EyeContactScore is fixed: visual preference is interpreted by the batch
// analysis call, not locally.
func EyeContactScore() model.Score { return model.ScoreTypical }

// NameResponseScore maps a head turn to a score and the reported latency.
// Latency is nil when the child did not respond.
func NameResponseScore(responded bool) (model.Score, *int) {
	if !responded {
		return model.ScoreConcern, nil
	}
	latency := model.FixedResponseLatencyMS
	return model.ScoreTypical, &latency
}

// VocalizationScore maps the share of speech blocks to a score and an
// activity index in [0,1].
func VocalizationScore(vocalPercentage float64) (model.Score, float64) {
	index := vocalPercentage / 100
	switch {
	case vocalPercentage < VocalLowPercent:
		return model.ScoreConcern, index
	case vocalPercentage < VocalMidPercent:
		return model.ScoreMild, index
	default:
		return model.ScoreTypical, index
	}
}

// GestureScore maps hand detection to a score.
func GestureScore(handsDetected bool) model.Score {
	if handsDetected {
		return model.ScoreTypical
	}
	return model.ScoreConcern
}

// RepetitiveScore maps accumulated body movement to a score.
func RepetitiveScore(movementScore float64) model.Score {
	if movementScore > RepetitiveThreshold {
		return model.ScoreConcern
	}
	return model.ScoreTypical
}
