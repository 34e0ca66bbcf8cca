package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/seanesla/kanari-sub005/internal/audio"
	"github.com/seanesla/kanari-sub005/internal/biomarker"
	"github.com/seanesla/kanari-sub005/internal/live"
	"github.com/seanesla/kanari-sub005/internal/widget"
)

const (
	wireSampleRate   = 16000
	historyLimit     = 20
	recapMessages    = 6
	synthesisTimeout = 15 * time.Second
	analysisTimeout  = 10 * time.Second
)

// Media bundles the per-session realtime resources. A fresh set is built for
// every session because transport and capture are single-use.
type Media struct {
	Transport Transport
	Capture   Capture
	Playback  Playback
}

// MediaFactory builds the media stack for one session.
type MediaFactory func() (Media, error)

// Options configures the long-lived collaborators and the conversation setup.
type Options struct {
	Instructions string
	// Settings is an opaque snapshot of the user-facing configuration; it goes
	// into the preservation fingerprint so a settings change invalidates a
	// preserved session.
	Settings string

	Store     Persistence
	Semantic  SemanticAnalyzer
	Analyzer  biomarker.Analyzer
	Preserver Preserver
	Widgets   *widget.Dispatcher
}

// StartOptions are per-start flags from the UI.
type StartOptions struct {
	// UserGesture must be true: audio devices can only be acquired from a
	// direct user action on the host platform.
	UserGesture bool
	// Resume asks for the preserved session, when one exists and still
	// matches the current context. Falls back to a fresh session otherwise.
	Resume bool
}

// Orchestrator owns the single active check-in: it drives the state machine,
// consumes transport and capture events, and is the only writer of the
// session record.
type Orchestrator struct {
	factory MediaFactory
	opts    Options

	mu        sync.Mutex
	state     State
	phase     InitPhase
	sess      *Session
	media     Media
	stopCh    chan struct{}
	doneCh    chan struct{}
	greeted   bool
	voiced    bool
	persisted bool

	openAssistant int
	openUser      int

	window     *biomarker.Accumulator
	analysisCh chan *biomarker.AcousticMetrics
	analyzing  int32

	onState func(State, InitPhase)
}

func NewOrchestrator(factory MediaFactory, opts Options) *Orchestrator {
	if opts.Widgets == nil {
		opts.Widgets = widget.NewDispatcher()
	}
	return &Orchestrator{
		factory:       factory,
		opts:          opts,
		state:         StateIdle,
		openAssistant: -1,
		openUser:      -1,
	}
}

// OnStateChange registers a callback fired after every state or init-phase
// transition. Called from orchestrator goroutines; keep it fast.
func (o *Orchestrator) OnStateChange(fn func(State, InitPhase)) {
	o.mu.Lock()
	o.onState = fn
	o.mu.Unlock()
}

// State returns the current machine state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Phase returns the current init sub-step.
func (o *Orchestrator) Phase() InitPhase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Snapshot returns a copy of the active (or last) session, or nil.
func (o *Orchestrator) Snapshot() *Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess == nil {
		return nil
	}
	cp := *o.sess
	cp.Messages = append([]Message(nil), o.sess.Messages...)
	cp.Widgets = append([]*widget.Widget(nil), o.sess.Widgets...)
	return &cp
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	if o.state == s {
		o.mu.Unlock()
		return
	}
	o.state = s
	cb, phase := o.onState, o.phase
	o.mu.Unlock()
	log.Printf("session: state -> %s", s)
	if cb != nil {
		cb(s, phase)
	}
}

func (o *Orchestrator) setPhase(p InitPhase) {
	o.mu.Lock()
	o.phase = p
	cb, state := o.onState, o.state
	o.mu.Unlock()
	log.Printf("session: init phase %s", p)
	if cb != nil {
		cb(state, p)
	}
}

func (o *Orchestrator) active() bool {
	switch o.state {
	case StateIdle, StateComplete, StateError:
		return false
	}
	return true
}

// StartSession brings up a new check-in. Calling it while a session is active
// is a no-op. A microphone decline returns audio.ErrPermission and leaves the
// machine idle so the user can simply try again.
func (o *Orchestrator) StartSession(ctx context.Context, start StartOptions) error {
	o.mu.Lock()
	if o.active() {
		o.mu.Unlock()
		return nil
	}
	if !start.UserGesture {
		o.mu.Unlock()
		return ErrNoUserGesture
	}
	o.state = StateInitializing
	cb, phase := o.onState, o.phase
	o.mu.Unlock()
	log.Printf("session: state -> %s", StateInitializing)
	if cb != nil {
		cb(StateInitializing, phase)
	}

	o.setPhase(PhaseFetchingContext)
	sess, resume, recap := o.prepareSession(ctx, start)

	media, err := o.factory()
	if err != nil {
		o.setState(StateError)
		return fmt.Errorf("build media stack: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		o.setPhase(PhaseInitPlayback)
		if err := media.Playback.Start(gctx); err != nil {
			return fmt.Errorf("init playback: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		o.setPhase(PhaseInitCapture)
		return media.Capture.Start(gctx)
	})
	if err := g.Wait(); err != nil {
		media.Capture.Stop()
		media.Playback.Close()
		_ = media.Transport.Close()
		if errors.Is(err, audio.ErrPermission) {
			// expected decline, stay quiet and retryable
			o.setState(StateIdle)
			return err
		}
		o.setState(StateError)
		return err
	}

	o.setState(StateConnecting)
	o.setPhase(PhaseConnectingGemini)
	sys := live.SystemContext{Instructions: o.opts.Instructions, Resume: resume, Recap: recap}
	if err := media.Transport.Connect(ctx, sys); err != nil {
		media.Capture.Stop()
		media.Playback.Close()
		o.setState(StateError)
		return err
	}

	o.mu.Lock()
	o.sess = sess
	o.media = media
	o.stopCh = make(chan struct{})
	o.doneCh = make(chan struct{})
	o.greeted = resume // a resumed session was greeted before preservation
	o.voiced = false
	o.persisted = false
	o.openAssistant = -1
	o.openUser = -1
	o.window = biomarker.NewAccumulator(wireSampleRate)
	o.analysisCh = make(chan *biomarker.AcousticMetrics, 4)
	atomic.StoreInt32(&o.analyzing, 0)
	o.mu.Unlock()

	o.setState(StateReady)
	o.setPhase(PhaseWaitingAIResponse)
	go o.run(media)
	return nil
}

// prepareSession builds a fresh session, or rehydrates the preserved one when
// resume is requested and the context fingerprint still matches. Staleness is
// swallowed: the caller always gets a usable session.
func (o *Orchestrator) prepareSession(ctx context.Context, start StartOptions) (*Session, bool, []string) {
	if start.Resume && o.opts.Preserver != nil && o.opts.Preserver.HasPreserved(ctx) {
		restored, err := o.opts.Preserver.Resume(ctx, o.historyDigest, o.opts.Settings)
		if err != nil {
			if errors.Is(err, ErrStaleContext) {
				log.Printf("session: preserved context stale, starting fresh")
			} else {
				log.Printf("session: resume failed, starting fresh: %v", err)
			}
		} else {
			restored.EndedAt = nil
			return restored, true, recapLines(restored)
		}
	}
	return &Session{ID: uuid.NewString(), StartedAt: time.Now()}, false, nil
}

// recapLines renders the tail of the conversation for the resume opener.
func recapLines(s *Session) []string {
	msgs := s.Messages
	if len(msgs) > recapMessages {
		msgs = msgs[len(msgs)-recapMessages:]
	}
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Content == "" {
			continue
		}
		out = append(out, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return out
}

// historyDigest summarizes recent stored sessions for fingerprinting.
func (o *Orchestrator) historyDigest(ctx context.Context) (string, error) {
	if o.opts.Store == nil {
		return "", nil
	}
	hist, err := o.opts.Store.LoadRecentHistory(ctx, historyLimit)
	if err != nil {
		return "", fmt.Errorf("load history for digest: %w", err)
	}
	var b strings.Builder
	for _, s := range hist {
		fmt.Fprintf(&b, "%s|%d;", s.ID, len(s.Messages))
	}
	return b.String(), nil
}

func (o *Orchestrator) run(media Media) {
	o.mu.Lock()
	doneCh, stopCh := o.doneCh, o.stopCh
	analysisCh := o.analysisCh
	o.mu.Unlock()
	defer close(doneCh)

	events := media.Transport.Events()
	frames := media.Capture.Frames()
	voice := media.Capture.Voice()

	for {
		select {
		case <-stopCh:
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			o.handleEvent(media, ev)
		case frame, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			o.handleFrame(media, frame)
		case v, ok := <-voice:
			if !ok {
				voice = nil
				continue
			}
			o.handleVoice(media, v)
		case m := <-analysisCh:
			o.attachMetrics(m)
		}
	}
}

func (o *Orchestrator) handleEvent(media Media, ev live.Event) {
	switch ev := ev.(type) {
	case live.AudioChunkEvent:
		media.Playback.WritePCM(ev.Data)
		o.enterAssistantSpeaking()
	case live.AssistantTextEvent:
		o.appendAssistantDelta(ev.Text)
		o.enterAssistantSpeaking()
	case live.UserTranscriptEvent:
		o.appendUserDelta(ev.Text)
	case live.TurnCompleteEvent:
		media.Playback.FlushTail()
		o.completeAssistantTurn()
	case live.InterruptedEvent:
		media.Playback.Reset()
		o.sealAssistant()
		o.afterAssistantStopped()
	case live.TurnMutedEvent:
		media.Playback.Reset()
		o.retractAssistant()
	case live.ToolCallEvent:
		o.handleToolCall(media, ev)
	case live.ErrorEvent:
		log.Printf("session: transport error: %v", ev.Err)
		o.failSession()
	}
}

func (o *Orchestrator) handleFrame(media Media, frame []byte) {
	o.mu.Lock()
	if o.sess == nil || o.sess.Muted {
		o.mu.Unlock()
		return
	}
	voiced := o.voiced
	window := o.window
	o.mu.Unlock()

	if err := media.Transport.SendAudio(frame); err != nil {
		log.Printf("session: send audio: %v", err)
	}
	if o.opts.Analyzer == nil || window == nil {
		return
	}
	window.Append(frame, voiced)
	if window.Ready() && atomic.CompareAndSwapInt32(&o.analyzing, 0, 1) {
		go o.analyze(window.Take())
	}
}

func (o *Orchestrator) analyze(pcm []byte) {
	defer atomic.StoreInt32(&o.analyzing, 0)
	ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
	defer cancel()
	m, err := o.opts.Analyzer.AnalyzeWindow(ctx, pcm)
	if err != nil {
		log.Printf("session: acoustic analysis: %v", err)
		return
	}
	o.mu.Lock()
	ch, stop := o.analysisCh, o.stopCh
	o.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- m:
	case <-stop:
	}
}

// attachMetrics installs a new acoustic snapshot; newer windows supersede
// older ones, nothing is deleted.
func (o *Orchestrator) attachMetrics(m *biomarker.AcousticMetrics) {
	if m == nil {
		return
	}
	normalized := biomarker.Fuse(m, nil)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess == nil {
		return
	}
	o.sess.Metrics = normalized
	for i := len(o.sess.Messages) - 1; i >= 0; i-- {
		if o.sess.Messages[i].Role == RoleUser {
			o.sess.Messages[i].Metrics = normalized
			break
		}
	}
}

func (o *Orchestrator) handleVoice(media Media, speaking bool) {
	o.mu.Lock()
	o.voiced = speaking
	state := o.state
	o.mu.Unlock()

	if speaking {
		switch state {
		case StateAssistantSpeaking, StateAIGreeting:
			// barge-in: drop queued playback before anything else
			media.Playback.Reset()
			if err := media.Transport.Interrupt(); err != nil {
				log.Printf("session: interrupt: %v", err)
			}
			o.sealAssistant()
			o.setState(StateUserSpeaking)
		case StateListening, StateReady:
			o.setState(StateUserSpeaking)
		}
		return
	}
	if state == StateUserSpeaking {
		o.finalizeUserUtterance()
		o.setState(StateProcessing)
	}
}

// finalizeUserUtterance seals the open user message and runs the mismatch
// check against the latest acoustic window.
func (o *Orchestrator) finalizeUserUtterance() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess == nil || o.openUser < 0 || o.openUser >= len(o.sess.Messages) {
		o.openUser = -1
		return
	}
	msg := &o.sess.Messages[o.openUser]
	msg.open = false
	if r := biomarker.Detect(msg.Content, o.sess.Metrics); r != nil {
		msg.Mismatch = r
		if r.Detected {
			o.sess.MismatchCount++
			log.Printf("session: mismatch detected (%s voice, %s words)", r.AcousticSignal, r.SemanticSignal)
		}
	}
	o.openUser = -1
}

func (o *Orchestrator) enterAssistantSpeaking() {
	o.mu.Lock()
	greeted := o.greeted
	state := o.state
	o.mu.Unlock()
	switch state {
	case StateAssistantSpeaking, StateAIGreeting:
		return
	}
	if !greeted {
		o.setState(StateAIGreeting)
		return
	}
	o.setState(StateAssistantSpeaking)
}

func (o *Orchestrator) appendAssistantDelta(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess == nil {
		return
	}
	if o.openAssistant >= 0 && o.openAssistant < len(o.sess.Messages) {
		o.sess.Messages[o.openAssistant].Content += text
		return
	}
	o.sess.Messages = append(o.sess.Messages, Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Content:   text,
		Timestamp: time.Now(),
		open:      true,
	})
	o.openAssistant = len(o.sess.Messages) - 1
}

func (o *Orchestrator) appendUserDelta(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess == nil {
		return
	}
	if o.openUser >= 0 && o.openUser < len(o.sess.Messages) {
		o.sess.Messages[o.openUser].Content += text
		return
	}
	o.sess.Messages = append(o.sess.Messages, Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   text,
		Timestamp: time.Now(),
		open:      true,
	})
	o.openUser = len(o.sess.Messages) - 1
}

// sealAssistant closes the open assistant message keeping whatever content
// already streamed in (barge-in keeps the partial).
func (o *Orchestrator) sealAssistant() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess != nil && o.openAssistant >= 0 && o.openAssistant < len(o.sess.Messages) {
		o.sess.Messages[o.openAssistant].open = false
	}
	o.openAssistant = -1
}

// retractAssistant removes the open assistant message entirely: a muted turn
// must leave no trace of the partial response.
func (o *Orchestrator) retractAssistant() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess != nil && o.openAssistant >= 0 && o.openAssistant < len(o.sess.Messages) {
		o.sess.Messages = append(o.sess.Messages[:o.openAssistant], o.sess.Messages[o.openAssistant+1:]...)
	}
	o.openAssistant = -1
}

func (o *Orchestrator) completeAssistantTurn() {
	o.sealAssistant()
	o.mu.Lock()
	o.greeted = true
	o.mu.Unlock()
	o.afterAssistantStopped()
}

func (o *Orchestrator) afterAssistantStopped() {
	o.mu.Lock()
	voiced := o.voiced
	state := o.state
	o.mu.Unlock()
	switch state {
	case StateComplete, StateError, StateIdle:
		return
	}
	if voiced {
		o.setState(StateUserSpeaking)
		return
	}
	o.setState(StateListening)
}

func (o *Orchestrator) handleToolCall(media Media, ev live.ToolCallEvent) {
	w := o.opts.Widgets.Dispatch(ev.Name, ev.Args)
	if w != nil {
		o.mu.Lock()
		if o.sess != nil {
			o.sess.Widgets = append(o.sess.Widgets, w)
		}
		o.mu.Unlock()
	}
	// ack either way so the model is never left waiting on a tool
	if err := media.Transport.SendToolResponse(ev.ID, ev.Name, map[string]any{"ok": w != nil}); err != nil {
		log.Printf("session: tool response: %v", err)
	}
}

func (o *Orchestrator) failSession() {
	o.teardown()
	o.setState(StateError)
}

// teardown releases every realtime resource. Safe to call more than once.
func (o *Orchestrator) teardown() {
	o.mu.Lock()
	media := o.media
	if o.stopCh != nil {
		select {
		case <-o.stopCh:
		default:
			close(o.stopCh)
		}
	}
	o.mu.Unlock()
	if media.Capture != nil {
		media.Capture.Stop()
	}
	if media.Transport != nil {
		_ = media.Transport.Close()
	}
	if media.Playback != nil {
		media.Playback.Close()
	}
}

// EndSession finalizes the check-in: tears down media, runs the post-session
// semantic synthesis, fuses it into the biomarker scores and persists the
// record. Idempotent; a session the user never participated in is discarded
// rather than saved. Store failures are logged and never block completion.
func (o *Orchestrator) EndSession(ctx context.Context) error {
	o.mu.Lock()
	if o.sess == nil || o.state == StateComplete {
		o.mu.Unlock()
		return nil
	}
	sess := o.sess
	o.mu.Unlock()

	o.teardown()
	o.sealAssistant()
	o.finalizeUserUtterance()

	o.mu.Lock()
	now := time.Now()
	sess.EndedAt = &now
	participated := sess.HasParticipation()
	alreadyPersisted := o.persisted
	o.mu.Unlock()

	if participated {
		o.synthesize(ctx, sess)
		if o.opts.Store != nil && !alreadyPersisted {
			o.mu.Lock()
			o.persisted = true
			o.mu.Unlock()
			if err := o.opts.Store.SaveSession(ctx, sess); err != nil {
				// local-first: the session still completes, the record is lost
				log.Printf("session: persist failed: %v", err)
			}
		}
	} else {
		log.Printf("session: no participation, discarding")
	}

	o.setState(StateComplete)
	return nil
}

// synthesize runs the semantic pass and folds its results into the session.
func (o *Orchestrator) synthesize(ctx context.Context, sess *Session) {
	if o.opts.Semantic == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, synthesisTimeout)
	defer cancel()

	syn, err := o.opts.Semantic.Synthesize(sctx, transcriptOf(sess))
	if err != nil {
		log.Printf("session: semantic synthesis: %v", err)
		return
	}
	o.mu.Lock()
	if syn.Semantic != nil {
		if sess.Metrics != nil {
			sess.Metrics = biomarker.Fuse(sess.Metrics, syn.Semantic)
		} else {
			// no acoustic windows completed; the semantic read stands alone
			sess.Metrics = &biomarker.AcousticMetrics{
				StressScore:  syn.Semantic.StressScore,
				FatigueScore: syn.Semantic.FatigueScore,
				StressLevel:  biomarker.LevelFor(syn.Semantic.StressScore),
				FatigueLevel: biomarker.LevelFor(syn.Semantic.FatigueScore),
				Confidence:   syn.Semantic.Confidence,
			}
		}
	}
	o.mu.Unlock()

	if o.opts.Store != nil {
		for _, text := range syn.Suggestions {
			sg := &Suggestion{SessionID: sess.ID, Text: text, CreatedAt: time.Now()}
			if err := o.opts.Store.AppendSuggestion(ctx, sg); err != nil {
				log.Printf("session: append suggestion: %v", err)
			}
		}
	}
}

func transcriptOf(sess *Session) string {
	var b strings.Builder
	for _, m := range sess.Messages {
		if m.Content == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}

// CancelSession discards the active session without persisting anything.
func (o *Orchestrator) CancelSession() error {
	o.mu.Lock()
	if o.sess == nil || !o.active() {
		o.mu.Unlock()
		return ErrNoSession
	}
	o.mu.Unlock()

	o.teardown()
	o.opts.Widgets.Reset()
	o.mu.Lock()
	o.sess = nil
	o.mu.Unlock()
	o.setState(StateIdle)
	return nil
}

// InterruptAssistant stops assistant speech immediately. Only valid while the
// assistant is speaking; anywhere else it does nothing and reports why.
func (o *Orchestrator) InterruptAssistant() error {
	o.mu.Lock()
	if o.state != StateAssistantSpeaking {
		o.mu.Unlock()
		return ErrNotInterruptible
	}
	media := o.media
	o.mu.Unlock()

	media.Playback.Reset()
	if err := media.Transport.Interrupt(); err != nil {
		log.Printf("session: interrupt: %v", err)
	}
	o.sealAssistant()
	o.setState(StateListening)
	return nil
}

// SendTextMessage injects a typed user message as an alternate input
// modality. Not accepted before the greeting has finished.
func (o *Orchestrator) SendTextMessage(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrTextNotAllowed
	}
	o.mu.Lock()
	if o.sess == nil || !o.active() {
		o.mu.Unlock()
		return ErrNoSession
	}
	if o.state == StateReady || o.state == StateAIGreeting {
		o.mu.Unlock()
		return ErrTextNotAllowed
	}
	o.sess.Messages = append(o.sess.Messages, Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   text,
		Timestamp: time.Now(),
	})
	media := o.media
	o.mu.Unlock()

	if err := media.Transport.SendText(text); err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	o.setState(StateProcessing)
	return nil
}

// ToggleMute flips the microphone mute and returns the new value. Muted
// sessions keep the connection alive but send no audio.
func (o *Orchestrator) ToggleMute() (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess == nil || !o.active() {
		return false, ErrNoSession
	}
	o.sess.Muted = !o.sess.Muted
	log.Printf("session: mic muted=%v", o.sess.Muted)
	return o.sess.Muted, nil
}

// TriggerManualTool dispatches a widget from the UI without a model tool
// call. Unknown names are ignored, mirroring the dispatcher contract.
func (o *Orchestrator) TriggerManualTool(name string, args map[string]interface{}) *widget.Widget {
	w := o.opts.Widgets.Dispatch(name, args)
	if w != nil {
		o.mu.Lock()
		if o.sess != nil {
			o.sess.Widgets = append(o.sess.Widgets, w)
		}
		o.mu.Unlock()
	}
	return w
}

// Preserve parks the active session for a later resume and returns the
// machine to idle. Nothing is persisted to history.
func (o *Orchestrator) Preserve(ctx context.Context) error {
	o.mu.Lock()
	if o.sess == nil || !o.active() {
		o.mu.Unlock()
		return ErrNoSession
	}
	o.mu.Unlock()
	if o.opts.Preserver == nil {
		return errors.New("session: no preserver configured")
	}

	o.sealAssistant()
	o.finalizeUserUtterance()

	digest, err := o.historyDigest(ctx)
	if err != nil {
		log.Printf("session: digest for preserve: %v", err)
	}
	o.mu.Lock()
	sess := o.sess
	o.mu.Unlock()
	if err := o.opts.Preserver.Preserve(ctx, sess, digest, o.opts.Settings); err != nil {
		return fmt.Errorf("preserve session: %w", err)
	}

	o.teardown()
	o.mu.Lock()
	o.sess = nil
	o.mu.Unlock()
	o.setState(StateIdle)
	return nil
}

// HasPreserved reports whether a parked session exists.
func (o *Orchestrator) HasPreserved(ctx context.Context) bool {
	return o.opts.Preserver != nil && o.opts.Preserver.HasPreserved(ctx)
}

// ContextFingerprint exposes the preserved handle's fingerprint for the UI.
func (o *Orchestrator) ContextFingerprint(ctx context.Context) (uint64, error) {
	if o.opts.Preserver == nil {
		return 0, errors.New("session: no preserver configured")
	}
	return o.opts.Preserver.ContextFingerprint(ctx)
}
