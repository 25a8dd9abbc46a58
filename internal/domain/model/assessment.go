package model

// Band is the qualitative bucket of a composite risk score.
type Band string

// Risk bands.
const (
	BandLow      Band = "Low"
	BandModerate Band = "Moderate"
	BandHigh     Band = "High"
	BandError    Band = "Error"
)

// DomainScores are the five 0..100 sub-scores feeding the composite.
type DomainScores struct {
	Social     float64 `json:"social" yaml:"social"`
	Response   float64 `json:"response" yaml:"response"`
	Vocal      float64 `json:"vocal" yaml:"vocal"`
	Gestures   float64 `json:"gestures" yaml:"gestures"`
	Repetitive float64 `json:"repetitive" yaml:"repetitive"`
}

// RiskAssessment is the final session output handed to the results view.
type RiskAssessment struct {
	RiskScore        int          `json:"riskScore" yaml:"riskScore"`
	RiskBand         Band         `json:"riskBand" yaml:"riskBand"`
	Flags            []string     `json:"flags" yaml:"flags"`
	DomainScores     DomainScores `json:"domainScores" yaml:"domainScores"`
	AIInterpretation string       `json:"aiInterpretation,omitempty" yaml:"aiInterpretation,omitempty"`
}
