package audio

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	playbackRate      = 24000
	playbackFrameMs   = 20
	playbackFrameSize = playbackRate * playbackFrameMs / 1000 * 2 // bytes per 20ms frame
)

// SampleWriter delivers PCM to the host playback device.
type SampleWriter interface {
	WritePCM(pcm []byte) error
}

// PacedPlayer buffers inbound 24kHz mono PCM16LE and writes it to the device
// in paced 20ms frames. Reset drops everything queued so an interruption is
// effectively immediate.
type PacedPlayer struct {
	w       SampleWriter
	pcmBuf  []byte
	frames  chan []byte
	stopCh  chan struct{}
	stopped bool
	mu      sync.Mutex
}

// NewPacedPlayer constructs a paced player and starts its pacer.
func NewPacedPlayer(w SampleWriter) *PacedPlayer {
	p := &PacedPlayer{
		w:      w,
		frames: make(chan []byte, 512),
		stopCh: make(chan struct{}),
	}
	go p.pacer()
	return p
}

// Start primes the output device with one frame of silence so the host opens
// the stream now and init failures surface before the conversation begins.
func (p *PacedPlayer) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.w.WritePCM(make([]byte, playbackFrameSize)); err != nil {
		return fmt.Errorf("prime playback device: %w", err)
	}
	return nil
}

// WritePCM buffers model audio and emits full frames to the pacer queue.
func (p *PacedPlayer) WritePCM(pcm []byte) {
	if len(pcm) < 2 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pcmBuf = append(p.pcmBuf, pcm...)
	for len(p.pcmBuf) >= playbackFrameSize {
		frame := make([]byte, playbackFrameSize)
		copy(frame, p.pcmBuf[:playbackFrameSize])
		p.pushFrame(frame)
		p.pcmBuf = p.pcmBuf[playbackFrameSize:]
	}
}

// FlushTail pads the remaining PCM to a full frame and adds a short silence
// tail to avoid clipping the end of a turn.
func (p *PacedPlayer) FlushTail() {
	p.mu.Lock()
	if len(p.pcmBuf) > 0 {
		pad := make([]byte, playbackFrameSize)
		copy(pad, p.pcmBuf)
		p.pushFrame(pad)
		p.pcmBuf = p.pcmBuf[:0]
	}
	p.mu.Unlock()
	// ~100ms of silence (5 frames)
	for i := 0; i < 5; i++ {
		p.mu.Lock()
		p.pushFrame(make([]byte, playbackFrameSize))
		p.mu.Unlock()
	}
}

// Reset clears any queued frames to support immediate barge-in.
func (p *PacedPlayer) Reset() {
	p.mu.Lock()
	for {
		select {
		case <-p.frames:
		default:
			p.pcmBuf = p.pcmBuf[:0]
			p.mu.Unlock()
			return
		}
	}
}

// Close stops the pacer. Safe to call twice.
func (p *PacedPlayer) Close() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.stopCh)
	}
	p.mu.Unlock()
}

func (p *PacedPlayer) pacer() {
	ticker := time.NewTicker(playbackFrameMs * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			select {
			case frame := <-p.frames:
				_ = p.w.WritePCM(frame)
			default:
			}
		}
	}
}

// pushFrame enqueues a frame without blocking the caller; oldest audio is
// dropped under backpressure since stale playback is worse than a gap.
func (p *PacedPlayer) pushFrame(frame []byte) {
	select {
	case p.frames <- frame:
	default:
		select {
		case <-p.frames:
		default:
		}
		select {
		case p.frames <- frame:
		default:
		}
	}
}
