package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/seanesla/kanari-sub005/internal/audio"
	"github.com/seanesla/kanari-sub005/internal/config"
	"github.com/seanesla/kanari-sub005/internal/httpserver"
	"github.com/seanesla/kanari-sub005/internal/live"
	"github.com/seanesla/kanari-sub005/internal/preserve"
	"github.com/seanesla/kanari-sub005/internal/semantic"
	"github.com/seanesla/kanari-sub005/internal/session"
	"github.com/seanesla/kanari-sub005/internal/store"
	"github.com/seanesla/kanari-sub005/internal/widget"
)

const systemInstructions = `You are a warm, attentive wellness companion running a short daily voice check-in.
Keep replies brief and conversational. Ask one question at a time. When the user
sounds done, wrap up kindly. Use the provided tools when a widget would genuinely
help; call stay_silent when the user asked for quiet or a reply would intrude.`

// pcmSink bridges playback to the host's output pipe.
type pcmSink struct {
	f *os.File
}

func (s *pcmSink) WritePCM(pcm []byte) error {
	_, err := s.f.Write(pcm)
	return err
}

func micOpener(path string) audio.MicOpener {
	return func() (io.ReadCloser, error) {
		f, err := os.Open(path)
		if err != nil {
			if errors.Is(err, os.ErrPermission) {
				return nil, audio.ErrPermission
			}
			return nil, fmt.Errorf("open mic pipe: %w", err)
		}
		return f, nil
	}
}

func main() {
	// Include sub-second precision in all log timestamps
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg := config.Load()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	mediaFactory := func() (session.Media, error) {
		out, err := os.OpenFile(cfg.AudioOutPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return session.Media{}, fmt.Errorf("open playback pipe: %w", err)
		}
		client := live.NewClient(live.Options{
			APIKey:   cfg.GeminiAPIKey,
			Model:    cfg.GeminiModel,
			Voice:    cfg.GeminiVoice,
			MuteTool: widget.MuteToolName,
			Tools: []live.ToolDecl{
				{Name: string(widget.TypeScheduleActivity), Description: "Propose a calendar entry for a restorative activity."},
				{Name: string(widget.TypeBreathingExercise), Description: "Offer a guided breathing exercise."},
				{Name: string(widget.TypeStressGauge), Description: "Show the user their current stress reading."},
				{Name: string(widget.TypeQuickActions), Description: "Offer a short list of tappable follow-ups."},
				{Name: string(widget.TypeJournalPrompt), Description: "Seed a journal entry with a prompt."},
			},
		})
		return session.Media{
			Transport: client,
			Capture:   audio.NewCapture(micOpener(cfg.AudioInPath), audio.DefaultCaptureConfig()),
			Playback:  audio.NewPacedPlayer(&pcmSink{f: out}),
		}, nil
	}

	orch := session.NewOrchestrator(mediaFactory, session.Options{
		Instructions: systemInstructions,
		Settings:     fmt.Sprintf("model=%s;voice=%s", cfg.GeminiModel, cfg.GeminiVoice),
		Store:        st,
		Semantic:     semantic.NewClient(cfg.SemanticAPIKey, cfg.SemanticModelID),
		Preserver:    preserve.NewManager(st),
		Widgets:      widget.NewDispatcher(),
	})

	e := httpserver.New()
	httpserver.NewHandlers(orch).Register(e)

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", cfg.HTTPAddress)
		serverErrors <- server.ListenAndServe()
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("shutdown signal received: %v", sig)
	}

	if err := orch.EndSession(context.Background()); err != nil {
		log.Printf("end session on shutdown: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = server.Close()
	}
}
