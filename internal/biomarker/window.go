package biomarker

import "sync"

// windowSeconds is how much voiced audio must accumulate before a window is
// handed to the analyzer.
const windowSeconds = 3

// Accumulator buffers voiced 16kHz mono PCM16LE until enough speech exists
// for one analysis window. Silent frames are not counted toward the window.
type Accumulator struct {
	mu        sync.Mutex
	buf       []byte
	wantBytes int
}

// NewAccumulator sizes the window for the given sample rate.
func NewAccumulator(sampleRate int) *Accumulator {
	return &Accumulator{wantBytes: sampleRate * 2 * windowSeconds}
}

// Append adds a frame; only voiced frames advance the window.
func (a *Accumulator) Append(pcm []byte, voiced bool) {
	if !voiced || len(pcm) == 0 {
		return
	}
	a.mu.Lock()
	a.buf = append(a.buf, pcm...)
	a.mu.Unlock()
}

// Ready reports whether a full window has accumulated.
func (a *Accumulator) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buf) >= a.wantBytes
}

// Take returns the buffered window and resets the accumulator.
func (a *Accumulator) Take() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.buf
	a.buf = nil
	return out
}
