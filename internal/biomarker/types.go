package biomarker

import "context"

// Level is an ordinal band over a 0-100 score.
type Level string

const (
	LevelLow      Level = "low"
	LevelMild     Level = "mild"
	LevelElevated Level = "elevated"
	LevelHigh     Level = "high"
)

// LevelFor maps a 0-100 score onto its band.
func LevelFor(score float64) Level {
	switch {
	case score < 25:
		return LevelLow
	case score < 50:
		return LevelMild
	case score < 75:
		return LevelElevated
	default:
		return LevelHigh
	}
}

// AcousticMetrics is one per-window biomarker snapshot. After fusion the
// authoritative scores are the blended values; the acoustic-only figures are
// retained under the Acoustic* fields for audit.
type AcousticMetrics struct {
	StressScore  float64   `json:"stressScore"`
	FatigueScore float64   `json:"fatigueScore"`
	StressLevel  Level     `json:"stressLevel"`
	FatigueLevel Level     `json:"fatigueLevel"`
	Confidence   float64   `json:"confidence"`
	Features     []float64 `json:"features,omitempty"`

	AcousticStressScore  float64 `json:"acousticStressScore"`
	AcousticFatigueScore float64 `json:"acousticFatigueScore"`
	AcousticConfidence   float64 `json:"acousticConfidence"`
}

// SemanticReading is a transcript-derived biomarker estimate, typically
// available only after the session ends.
type SemanticReading struct {
	StressScore  float64 `json:"stressScore"`
	FatigueScore float64 `json:"fatigueScore"`
	Confidence   float64 `json:"confidence"`
}

// AcousticSignal classifies what the voice sounded like.
type AcousticSignal string

const (
	SignalStressed  AcousticSignal = "stressed"
	SignalFatigued  AcousticSignal = "fatigued"
	SignalNormal    AcousticSignal = "normal"
	SignalEnergetic AcousticSignal = "energetic"
)

// SemanticSignal classifies what the words said.
type SemanticSignal string

const (
	SentimentPositive SemanticSignal = "positive"
	SentimentNeutral  SemanticSignal = "neutral"
	SentimentNegative SemanticSignal = "negative"
)

// MismatchResult records a disagreement between voice and words for one turn.
type MismatchResult struct {
	Detected       bool           `json:"detected"`
	AcousticSignal AcousticSignal `json:"acousticSignal"`
	SemanticSignal SemanticSignal `json:"semanticSignal"`
	Confidence     float64        `json:"confidence"`
}

// Analyzer converts a buffered audio window into an acoustic snapshot.
// Implemented by an external collaborator; the orchestrator only consumes it.
type Analyzer interface {
	AnalyzeWindow(ctx context.Context, pcm []byte) (*AcousticMetrics, error)
}
