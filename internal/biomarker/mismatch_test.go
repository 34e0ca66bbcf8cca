package biomarker

import "testing"

func TestDetect_PositiveWordsStressedVoice(t *testing.T) {
	m := &AcousticMetrics{StressScore: 75, FatigueScore: 30, Confidence: 0.8}
	r := Detect("I'm doing great, everything is fine", m)
	if r == nil || !r.Detected {
		t.Fatalf("expected mismatch, got %#v", r)
	}
	if r.AcousticSignal != SignalStressed || r.SemanticSignal != SentimentPositive {
		t.Fatalf("unexpected signals: %#v", r)
	}
}

func TestDetect_NegativeWordsEnergeticVoice(t *testing.T) {
	m := &AcousticMetrics{StressScore: 10, FatigueScore: 5, Confidence: 0.9}
	r := Detect("honestly it has been a terrible awful week", m)
	if r == nil || !r.Detected {
		t.Fatalf("expected mismatch, got %#v", r)
	}
	if r.AcousticSignal != SignalEnergetic || r.SemanticSignal != SentimentNegative {
		t.Fatalf("unexpected signals: %#v", r)
	}
}

func TestDetect_AgreementIsNotMismatch(t *testing.T) {
	m := &AcousticMetrics{StressScore: 80, Confidence: 0.8}
	r := Detect("I'm so stressed and overwhelmed", m)
	if r == nil {
		t.Fatalf("expected result")
	}
	if r.Detected {
		t.Fatalf("agreement must not be a mismatch: %#v", r)
	}
}

func TestDetect_NegationFlipsSentiment(t *testing.T) {
	if got := classifySentiment("not good at all"); got != SentimentNegative {
		t.Fatalf("expected negative, got %s", got)
	}
	if got := classifySentiment("not tired today"); got != SentimentPositive {
		t.Fatalf("expected positive, got %s", got)
	}
}

func TestDetect_LowConfidenceReadsNormal(t *testing.T) {
	m := &AcousticMetrics{StressScore: 90, Confidence: 0.1}
	r := Detect("I feel great", m)
	if r.AcousticSignal != SignalNormal || r.Detected {
		t.Fatalf("low-confidence window must read normal: %#v", r)
	}
}

func TestDetect_EmptyInputs(t *testing.T) {
	if Detect("", &AcousticMetrics{}) != nil {
		t.Fatalf("expected nil for empty utterance")
	}
	if Detect("hello", nil) != nil {
		t.Fatalf("expected nil for missing metrics")
	}
}

func TestAccumulator_WindowLifecycle(t *testing.T) {
	a := NewAccumulator(16000)
	frame := make([]byte, 640) // 20ms at 16k
	for i := 0; i < 10; i++ {
		a.Append(frame, false) // silence never advances the window
	}
	if a.Ready() {
		t.Fatalf("silence must not fill the window")
	}
	// 3s of voiced audio = 150 frames
	for i := 0; i < 150; i++ {
		a.Append(frame, true)
	}
	if !a.Ready() {
		t.Fatalf("expected full window")
	}
	win := a.Take()
	if len(win) != 150*640 {
		t.Fatalf("expected %d bytes, got %d", 150*640, len(win))
	}
	if a.Ready() {
		t.Fatalf("take must reset the accumulator")
	}
}
