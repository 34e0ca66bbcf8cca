package biomarker

import (
	"strings"
	"unicode"
)

// Thresholds for classifying the acoustic signal of a window.
const (
	stressedScore         = 60.0
	fatiguedScore         = 60.0
	energeticScore        = 20.0
	minAcousticConfidence = 0.3
	energeticConfidence   = 0.5
)

// sentimentConfidence is the fixed confidence of the lexicon classifier.
const sentimentConfidence = 0.6

// Detect compares what the user said against how they sounded for one
// utterance. A mismatch is a positive utterance over a stressed/fatigued
// voice, or a negative utterance over an energetic voice.
func Detect(utterance string, m *AcousticMetrics) *MismatchResult {
	if m == nil || strings.TrimSpace(utterance) == "" {
		return nil
	}
	acoustic := classifyAcoustic(m)
	semantic := classifySentiment(utterance)

	r := &MismatchResult{
		AcousticSignal: acoustic,
		SemanticSignal: semantic,
		Confidence:     clamp(m.Confidence*sentimentConfidence, 0, 1),
	}
	switch {
	case semantic == SentimentPositive && (acoustic == SignalStressed || acoustic == SignalFatigued):
		r.Detected = true
	case semantic == SentimentNegative && acoustic == SignalEnergetic:
		r.Detected = true
	}
	return r
}

func classifyAcoustic(m *AcousticMetrics) AcousticSignal {
	if m.Confidence < minAcousticConfidence {
		return SignalNormal
	}
	switch {
	case m.StressScore >= stressedScore:
		return SignalStressed
	case m.FatigueScore >= fatiguedScore:
		return SignalFatigued
	case m.StressScore <= energeticScore && m.FatigueScore <= energeticScore && m.Confidence >= energeticConfidence:
		return SignalEnergetic
	default:
		return SignalNormal
	}
}

func classifySentiment(text string) SemanticSignal {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return !unicode.IsLetter(r) })
	var score int
	negated := false
	for _, w := range words {
		if _, ok := negationWords[w]; ok {
			negated = true
			continue
		}
		delta := 0
		if _, ok := positiveWords[w]; ok {
			delta = 1
		} else if _, ok := negativeWords[w]; ok {
			delta = -1
		}
		if delta != 0 {
			if negated {
				delta = -delta
			}
			score += delta
		}
		negated = false
	}
	switch {
	case score > 0:
		return SentimentPositive
	case score < 0:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

var positiveWords = map[string]struct{}{
	"good": {}, "great": {}, "fine": {}, "okay": {}, "ok": {}, "happy": {},
	"calm": {}, "relaxed": {}, "rested": {}, "well": {}, "better": {},
	"wonderful": {}, "amazing": {}, "excited": {}, "energized": {}, "love": {},
	"peaceful": {}, "content": {}, "easy": {},
}

var negativeWords = map[string]struct{}{
	"bad": {}, "tired": {}, "exhausted": {}, "stressed": {}, "anxious": {},
	"worried": {}, "sad": {}, "angry": {}, "overwhelmed": {}, "awful": {},
	"terrible": {}, "drained": {}, "burned": {}, "burnout": {}, "hard": {},
	"difficult": {}, "struggling": {}, "hate": {}, "frustrated": {}, "upset": {},
}

var negationWords = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "dont": {}, "cant": {}, "isnt": {},
	"wasnt": {}, "arent": {},
}
