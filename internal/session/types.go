package session

import (
	"context"
	"errors"
	"time"

	"github.com/seanesla/kanari-sub005/internal/biomarker"
	"github.com/seanesla/kanari-sub005/internal/live"
	"github.com/seanesla/kanari-sub005/internal/widget"
)

// State is where the check-in currently is. Transitions are owned entirely by
// the orchestrator's event loop.
type State string

const (
	StateIdle              State = "idle"
	StateInitializing      State = "initializing"
	StateConnecting        State = "connecting"
	StateReady             State = "ready"
	StateAIGreeting        State = "ai_greeting"
	StateListening         State = "listening"
	StateUserSpeaking      State = "user_speaking"
	StateProcessing        State = "processing"
	StateAssistantSpeaking State = "assistant_speaking"
	StateComplete          State = "complete"
	StateError             State = "error"
)

// InitPhase is the sub-step reported while the machine is initializing, so
// the UI can show real progress instead of a spinner.
type InitPhase string

const (
	PhaseFetchingContext   InitPhase = "fetching_context"
	PhaseInitPlayback      InitPhase = "init_audio_playback"
	PhaseInitCapture       InitPhase = "init_audio_capture"
	PhaseConnectingGemini  InitPhase = "connecting_gemini"
	PhaseWaitingAIResponse InitPhase = "waiting_ai_response"
)

// Role is who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one conversation entry. Assistant messages stream in deltas and
// stay open until the turn completes.
type Message struct {
	ID        string                    `json:"id"`
	Role      Role                      `json:"role"`
	Content   string                    `json:"content"`
	Timestamp time.Time                 `json:"timestamp"`
	Mismatch  *biomarker.MismatchResult `json:"mismatch,omitempty"`
	// Metrics is the acoustic snapshot from the window that covered this
	// utterance, when one completed in time.
	Metrics *biomarker.AcousticMetrics `json:"metrics,omitempty"`

	open bool
}

// Session is one check-in from start to completion.
type Session struct {
	ID            string                     `json:"id"`
	StartedAt     time.Time                  `json:"startedAt"`
	EndedAt       *time.Time                 `json:"endedAt,omitempty"`
	Messages      []Message                  `json:"messages"`
	Metrics       *biomarker.AcousticMetrics `json:"metrics,omitempty"`
	Widgets       []*widget.Widget           `json:"widgets,omitempty"`
	Muted         bool                       `json:"muted"`
	MismatchCount int                        `json:"mismatchCount"`
}

// HasParticipation reports whether the user actually took part: at least one
// user message, or an acoustic window that completed (the user spoke even if
// no transcription arrived). Sessions without participation are never
// persisted.
func (s *Session) HasParticipation() bool {
	if s.Metrics != nil {
		return true
	}
	for _, m := range s.Messages {
		if m.Role == RoleUser && m.Content != "" {
			return true
		}
	}
	return false
}

// Suggestion is one follow-up produced by the post-session synthesis.
type Suggestion struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Text      string    `json:"text"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Synthesis is everything the semantic analyzer returns for one transcript.
type Synthesis struct {
	Semantic    *biomarker.SemanticReading
	Suggestions []string
	Summary     string
}

// Persistence is the local record store the orchestrator writes through.
type Persistence interface {
	SaveSession(ctx context.Context, s *Session) error
	UpdateSession(ctx context.Context, s *Session) error
	LoadRecentHistory(ctx context.Context, limit int) ([]*Session, error)
	AppendSuggestion(ctx context.Context, sg *Suggestion) error
}

// SemanticAnalyzer runs the post-session transcript synthesis. Implementations
// must honor ctx cancellation.
type SemanticAnalyzer interface {
	Synthesize(ctx context.Context, transcript string) (*Synthesis, error)
}

// Transport is the realtime model connection the orchestrator drives.
type Transport interface {
	Connect(ctx context.Context, sys live.SystemContext) error
	Events() <-chan live.Event
	SendAudio(pcm []byte) error
	SendText(text string) error
	SendToolResponse(id, name string, result map[string]any) error
	Interrupt() error
	Close() error
}

// Capture is the microphone pipeline.
type Capture interface {
	Start(ctx context.Context) error
	Stop()
	Frames() <-chan []byte
	Voice() <-chan bool
}

// Playback is the paced speaker pipeline.
type Playback interface {
	Start(ctx context.Context) error
	WritePCM(pcm []byte)
	FlushTail()
	Reset()
	Close()
}

// Preserver parks and restores an in-flight session across app backgrounding.
type Preserver interface {
	Preserve(ctx context.Context, sess *Session, historyDigest, settings string) error
	Resume(ctx context.Context, digest func(context.Context) (string, error), settings string) (*Session, error)
	HasPreserved(ctx context.Context) bool
	ContextFingerprint(ctx context.Context) (uint64, error)
	Clear(ctx context.Context)
}

// Errors surfaced by the control operations.
var (
	ErrSessionActive    = errors.New("session already active")
	ErrNoSession        = errors.New("no active session")
	ErrNotInterruptible = errors.New("assistant is not speaking")
	ErrTextNotAllowed   = errors.New("text input not accepted in this state")
	ErrNoUserGesture    = errors.New("audio start requires a user gesture")

	// ErrStaleContext means a preserved session no longer matches the current
	// context and was discarded; resuming falls back to a fresh session.
	ErrStaleContext = errors.New("preserved session context is stale")
)
