package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"math"
	"testing"
	"time"
)

func pcmSine(sr int, hz float64, durMs int) []byte {
	n := sr * durMs / 1000
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := int16(8000 * math.Sin(2*math.Pi*hz*float64(i)/float64(sr)))
		binary.LittleEndian.PutUint16(out[i*2:(i+1)*2], uint16(v))
	}
	return out
}

func TestDownsample_DecimatesByFactor(t *testing.T) {
	src := []byte{1, 0, 2, 0, 3, 0, 4, 0, 5, 0, 6, 0}
	got := downsample(src, 3)
	if len(got) != 4 {
		t.Fatalf("expected 2 samples (4 bytes), got %d bytes", len(got))
	}
	if got[0] != 1 || got[2] != 4 {
		t.Fatalf("expected every 3rd sample, got %v", got)
	}
}

func TestRmsOf_SilenceAndTone(t *testing.T) {
	if rms := rmsOf(make([]byte, 320)); rms != 0 {
		t.Fatalf("expected zero RMS for silence, got %f", rms)
	}
	if rms := rmsOf(pcmSine(16000, 220, 20)); rms < 1000 {
		t.Fatalf("expected loud tone RMS, got %f", rms)
	}
}

type micStream struct {
	r io.Reader
}

func (m *micStream) Read(p []byte) (int, error) { return m.r.Read(p) }
func (m *micStream) Close() error               { return nil }

func TestCapture_EmitsFramesAndVoiceTransitions(t *testing.T) {
	// 200ms of tone then 600ms of silence at the device rate
	var src bytes.Buffer
	src.Write(pcmSine(48000, 220, 200))
	src.Write(make([]byte, 48000*600/1000*2))

	cfg := DefaultCaptureConfig()
	cfg.FallFrames = 10 // 200ms so the silent tail is long enough to trip it
	c := NewCapture(func() (io.ReadCloser, error) { return &micStream{r: &src}, nil }, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Stop()

	var frameCount int
	var transitions []bool
	deadline := time.After(2 * time.Second)
	framesOpen := true
	for framesOpen {
		select {
		case f, ok := <-c.Frames():
			if !ok {
				framesOpen = false
				break
			}
			frameCount++
			if len(f) != 16000*20/1000*2 {
				t.Fatalf("expected 640-byte 16k frame, got %d", len(f))
			}
		case v := <-c.Voice():
			transitions = append(transitions, v)
		case <-deadline:
			t.Fatalf("timed out draining capture")
		}
	}
	if frameCount == 0 {
		t.Fatalf("expected frames")
	}
	if len(transitions) < 2 || transitions[0] != true || transitions[1] != false {
		t.Fatalf("expected rise then fall transitions, got %v", transitions)
	}
}

func TestCapture_PermissionDenied(t *testing.T) {
	c := NewCapture(func() (io.ReadCloser, error) { return nil, ErrPermission }, DefaultCaptureConfig())
	err := c.Start(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if err != ErrPermission {
		t.Fatalf("expected ErrPermission, got %v", err)
	}
}
