package audio

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeSink struct {
	writes   int32
	writeErr error
}

func (f *fakeSink) WritePCM(p []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	atomic.AddInt32(&f.writes, 1)
	return nil
}

func TestPacedPlayer_StartPrimesDevice(t *testing.T) {
	fs := &fakeSink{}
	p := NewPacedPlayer(fs)
	defer p.Close()
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if atomic.LoadInt32(&fs.writes) != 1 {
		t.Fatalf("start must write one priming frame, got %d", fs.writes)
	}
}

func TestPacedPlayer_StartSurfacesDeviceFailure(t *testing.T) {
	fs := &fakeSink{writeErr: errors.New("device busy")}
	p := NewPacedPlayer(fs)
	defer p.Close()
	if err := p.Start(context.Background()); err == nil {
		t.Fatalf("expected device failure to surface")
	}
}

func TestPacedPlayer_PacerWritesFrames(t *testing.T) {
	fs := &fakeSink{}
	p := NewPacedPlayer(fs)
	defer p.Close()

	// three full frames worth of audio
	p.WritePCM(make([]byte, playbackFrameSize*3))

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) && atomic.LoadInt32(&fs.writes) == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	if atomic.LoadInt32(&fs.writes) == 0 {
		t.Fatalf("expected pacer to write at least one frame")
	}
}

func TestPacedPlayer_ResetDrains(t *testing.T) {
	fs := &fakeSink{}
	p := &PacedPlayer{
		w:      fs,
		frames: make(chan []byte, 8),
		stopCh: make(chan struct{}),
		pcmBuf: []byte{1, 2, 3},
	}
	p.frames <- []byte{0x01}
	p.frames <- []byte{0x02}
	p.Reset()
	select {
	case <-p.frames:
		t.Fatalf("expected frames channel to be drained")
	default:
	}
	if len(p.pcmBuf) != 0 {
		t.Fatalf("expected pcmBuf to be reset, got len=%d", len(p.pcmBuf))
	}
}

func TestPacedPlayer_PartialFrameBuffered(t *testing.T) {
	fs := &fakeSink{}
	p := &PacedPlayer{
		w:      fs,
		frames: make(chan []byte, 8),
		stopCh: make(chan struct{}),
	}
	p.WritePCM(make([]byte, playbackFrameSize/2))
	select {
	case <-p.frames:
		t.Fatalf("partial frame must not be emitted")
	default:
	}
	p.FlushTail()
	select {
	case f := <-p.frames:
		if len(f) != playbackFrameSize {
			t.Fatalf("expected padded full frame, got %d bytes", len(f))
		}
	default:
		t.Fatalf("expected flushed frame")
	}
}

func TestPacedPlayer_CloseIdempotent(t *testing.T) {
	p := NewPacedPlayer(&fakeSink{})
	p.Close()
	p.Close()
}
