package biomarker

// Fuse blends an acoustic snapshot with a semantic reading using
// confidence-weighted averaging per signal: each source's weight is its own
// confidence, renormalized so the weights sum to 1. A low-confidence semantic
// read barely moves the acoustic-only score; a zero-confidence (or absent)
// semantic read leaves it untouched. The fused result becomes the
// authoritative score; the acoustic-only figures are kept on the Acoustic*
// fields.
func Fuse(acoustic *AcousticMetrics, semantic *SemanticReading) *AcousticMetrics {
	if acoustic == nil {
		return nil
	}
	out := *acoustic
	out.AcousticStressScore = acoustic.StressScore
	out.AcousticFatigueScore = acoustic.FatigueScore
	out.AcousticConfidence = acoustic.Confidence

	if semantic != nil && semantic.Confidence > 0 {
		out.StressScore = blend(acoustic.StressScore, acoustic.Confidence, semantic.StressScore, semantic.Confidence)
		out.FatigueScore = blend(acoustic.FatigueScore, acoustic.Confidence, semantic.FatigueScore, semantic.Confidence)
		out.Confidence = maxf(acoustic.Confidence, semantic.Confidence)
	}

	out.StressScore = clamp(out.StressScore, 0, 100)
	out.FatigueScore = clamp(out.FatigueScore, 0, 100)
	out.Confidence = clamp(out.Confidence, 0, 1)
	out.StressLevel = LevelFor(out.StressScore)
	out.FatigueLevel = LevelFor(out.FatigueScore)
	return &out
}

func blend(aScore, aConf, sScore, sConf float64) float64 {
	total := aConf + sConf
	if total <= 0 {
		return aScore
	}
	return (aScore*aConf + sScore*sConf) / total
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
