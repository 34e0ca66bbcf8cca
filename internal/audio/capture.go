package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log"
	"math"
	"sync"
)

// ErrPermission is returned when the host denies microphone access. It is a
// distinct category so callers can skip noisy logging for expected declines.
var ErrPermission = errors.New("audio: microphone permission denied")

// CaptureConfig holds tuning for the capture pipeline.
type CaptureConfig struct {
	SourceRate int     // device rate, 48000 typical
	TargetRate int     // wire rate, 16000
	FrameMs    int     // emitted frame duration
	VoiceRMS   float64 // RMS threshold for voice energy
	RiseFrames int     // consecutive voiced frames before speech starts
	FallFrames int     // consecutive silent frames before speech ends
}

// DefaultCaptureConfig returns conservative thresholds for headset capture.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		SourceRate: 48000,
		TargetRate: 16000,
		FrameMs:    20,
		VoiceRMS:   250.0,
		RiseFrames: 3,  // 60ms
		FallFrames: 25, // 500ms
	}
}

// MicOpener acquires the microphone device stream (48kHz mono PCM16LE).
// Implementations return ErrPermission when the user declines access.
type MicOpener func() (io.ReadCloser, error)

// Capture reads device audio, downsamples to the 16kHz wire format, runs
// voice-activity detection and emits fixed-size frames. The device handle is
// acquired on Start and released on Stop, on every exit path.
type Capture struct {
	open MicOpener
	cfg  CaptureConfig

	frames chan []byte
	voice  chan bool
	stopCh chan struct{}

	mu      sync.Mutex
	src     io.ReadCloser
	started bool
	stopped bool
}

// NewCapture constructs a capture pipeline around a device opener.
func NewCapture(open MicOpener, cfg CaptureConfig) *Capture {
	if cfg.SourceRate == 0 {
		cfg = DefaultCaptureConfig()
	}
	return &Capture{
		open:   open,
		cfg:    cfg,
		frames: make(chan []byte, 64),
		voice:  make(chan bool, 16),
		stopCh: make(chan struct{}),
	}
}

// Frames yields 16kHz mono PCM16LE frames of FrameMs duration.
func (c *Capture) Frames() <-chan []byte { return c.frames }

// Voice yields voice-activity transitions: true when speech starts, false
// when sustained silence follows it.
func (c *Capture) Voice() <-chan bool { return c.voice }

// Start acquires the device and begins streaming. A permission decline
// surfaces as ErrPermission.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	src, err := c.open()
	if err != nil {
		return err
	}
	c.src = src
	c.started = true
	go c.run(ctx)
	return nil
}

// Stop releases the device and closes the output channels.
func (c *Capture) Stop() {
	c.mu.Lock()
	if !c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	close(c.stopCh)
	if c.src != nil {
		_ = c.src.Close()
	}
	c.mu.Unlock()
}

func (c *Capture) run(ctx context.Context) {
	defer close(c.frames)
	defer close(c.voice)

	srcFrameBytes := c.cfg.SourceRate * c.cfg.FrameMs / 1000 * 2
	factor := c.cfg.SourceRate / c.cfg.TargetRate
	buf := make([]byte, srcFrameBytes)

	var voiced bool
	var riseRun, fallRun int

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		default:
		}
		if _, err := io.ReadFull(c.src, buf); err != nil {
			if !c.closing() && !errors.Is(err, io.EOF) {
				log.Printf("audio: capture read error: %v", err)
			}
			return
		}
		frame := downsample(buf, factor)

		speech := rmsOf(frame) >= c.cfg.VoiceRMS
		if speech {
			riseRun++
			fallRun = 0
		} else {
			fallRun++
			riseRun = 0
		}
		switch {
		case !voiced && riseRun >= c.cfg.RiseFrames:
			voiced = true
			c.deliverVoice(true)
		case voiced && fallRun >= c.cfg.FallFrames:
			voiced = false
			c.deliverVoice(false)
		}

		select {
		case c.frames <- frame:
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Capture) deliverVoice(on bool) {
	select {
	case c.voice <- on:
	case <-c.stopCh:
	}
}

func (c *Capture) closing() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

// downsample decimates PCM16LE by the given integer factor.
func downsample(pcm []byte, factor int) []byte {
	if factor <= 1 {
		out := make([]byte, len(pcm))
		copy(out, pcm)
		return out
	}
	samples := len(pcm) / 2 / factor
	out := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		out[i*2] = pcm[i*factor*2]
		out[i*2+1] = pcm[i*factor*2+1]
	}
	return out
}

// rmsOf computes root-mean-square energy of a PCM16LE buffer.
func rmsOf(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		v := float64(int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2])))
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}
