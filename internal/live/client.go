package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultHost      = "generativelanguage.googleapis.com"
	bidiPath         = "/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	handshakeTimeout = 10 * time.Second
	setupAckTimeout  = 15 * time.Second

	inputMimeType  = "audio/pcm;rate=16000"
	outputMimeType = "audio/pcm;rate=24000"

	// StartSentinel tells the model to open the conversation itself.
	StartSentinel = "[START_CONVERSATION]"
	// ResumeSentinel tells the model this is a reconnect-with-recap, not a fresh start.
	ResumeSentinel = "[RESUME_CONVERSATION]"
)

// ErrServerClosing is reported when the server announces it is going away.
var ErrServerClosing = errors.New("live: server closing connection")

// ConnectError wraps a handshake/auth/network failure while establishing a session.
type ConnectError struct {
	Op  string
	Err error
}

func (e *ConnectError) Error() string { return fmt.Sprintf("live connect %s: %v", e.Op, e.Err) }
func (e *ConnectError) Unwrap() error { return e.Err }

// SystemContext is everything the model needs to open (or resume) a conversation.
type SystemContext struct {
	Instructions string
	// Resume replays a recap of the last few messages and instructs the model
	// to continue rather than re-greet.
	Resume bool
	Recap  []string
}

// Options configures a Client.
type Options struct {
	APIKey string
	Model  string
	Voice  string
	// MuteTool is the pseudo-tool name whose invocation means the whole turn
	// must be silent. Content for that turn is swallowed, never delivered.
	MuteTool string
	// Tools declared to the model alongside the mute pseudo-tool.
	Tools []ToolDecl
	// Host overrides the API host (tests).
	Host string
	// Insecure dials ws:// instead of wss:// (tests).
	Insecure bool
}

// ToolDecl declares one callable tool to the model.
type ToolDecl struct {
	Name        string
	Description string
}

// Client owns exactly one realtime connection to the conversational model.
// It frames outbound audio/text and demultiplexes inbound frames into Events.
type Client struct {
	opts Options

	conn     *websocket.Conn
	events   chan Event
	outbound chan any
	stopCh   chan struct{}

	mu        sync.RWMutex
	connected bool

	// turn demux state, owned by readLoop
	turn      int
	mutedTurn int
}

// NewClient constructs a disconnected client.
func NewClient(opts Options) *Client {
	if opts.Host == "" {
		opts.Host = defaultHost
	}
	return &Client{
		opts:      opts,
		events:    make(chan Event, 256),
		outbound:  make(chan any, 1024),
		stopCh:    make(chan struct{}),
		mutedTurn: -1,
	}
}

// Events returns the inbound event stream. Events are delivered in receipt
// order; transcript deltas are never reordered or coalesced. The channel is
// closed when the connection ends.
func (c *Client) Events() <-chan Event { return c.events }

// Connect dials the model, performs the setup handshake and sends the opening
// sentinel. It returns a *ConnectError on any failure.
func (c *Client) Connect(ctx context.Context, sys SystemContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}
	if c.opts.APIKey == "" {
		return &ConnectError{Op: "dial", Err: errors.New("api key is empty")}
	}

	scheme := "wss"
	if c.opts.Insecure {
		scheme = "ws"
	}
	u := url.URL{Scheme: scheme, Host: c.opts.Host, Path: bidiPath}
	q := u.Query()
	q.Set("key", c.opts.APIKey)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			log.Printf("live: dial failed with status %d", resp.StatusCode)
		}
		return &ConnectError{Op: "dial", Err: err}
	}

	if err := conn.WriteJSON(c.setupFrame(sys)); err != nil {
		_ = conn.Close()
		return &ConnectError{Op: "setup", Err: err}
	}

	_ = conn.SetReadDeadline(time.Now().Add(setupAckTimeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return &ConnectError{Op: "setup_ack", Err: err}
	}
	_ = conn.SetReadDeadline(time.Time{})
	var ack serverMessage
	if err := json.Unmarshal(payload, &ack); err != nil || ack.SetupComplete == nil {
		_ = conn.Close()
		if err == nil {
			err = errors.New("first frame is not setupComplete")
		}
		return &ConnectError{Op: "setup_ack", Err: err}
	}

	opener := clientContentMessage{ClientContent: clientContent{
		Turns:        []content{{Role: "user", Parts: []part{{Text: openerText(sys)}}}},
		TurnComplete: true,
	}}
	if err := conn.WriteJSON(opener); err != nil {
		_ = conn.Close()
		return &ConnectError{Op: "opener", Err: err}
	}

	c.conn = conn
	c.connected = true
	go c.readLoop()
	go c.writeLoop()
	log.Printf("live: connected model=%s", c.opts.Model)
	return nil
}

func (c *Client) setupFrame(sys SystemContext) setupMessage {
	setup := setupPayload{
		Model: c.opts.Model,
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"AUDIO"},
		},
		InputAudioTranscription:  &struct{}{},
		OutputAudioTranscription: &struct{}{},
	}
	if c.opts.Voice != "" {
		setup.GenerationConfig.SpeechConfig = &speechConfig{
			VoiceConfig: voiceConfig{PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: c.opts.Voice}},
		}
	}
	if sys.Instructions != "" {
		setup.SystemInstruction = &content{Parts: []part{{Text: sys.Instructions}}}
	}
	decls := make([]functionDecl, 0, len(c.opts.Tools)+1)
	for _, t := range c.opts.Tools {
		decls = append(decls, functionDecl{Name: t.Name, Description: t.Description})
	}
	if c.opts.MuteTool != "" {
		decls = append(decls, functionDecl{
			Name:        c.opts.MuteTool,
			Description: "Respond with complete silence for this turn. Call this instead of speaking.",
		})
	}
	if len(decls) > 0 {
		setup.Tools = []toolDecl{{FunctionDeclarations: decls}}
	}
	return setupMessage{Setup: setup}
}

func openerText(sys SystemContext) string {
	if !sys.Resume {
		return StartSentinel
	}
	var b strings.Builder
	b.WriteString(ResumeSentinel)
	if len(sys.Recap) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, line := range sys.Recap {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	b.WriteString("Continue the conversation where it left off. Do not greet the user again.")
	return b.String()
}

// SendAudio queues a 16kHz mono PCM16LE chunk. Ordering relative to SendText
// is preserved: both go through the same outbound queue.
func (c *Client) SendAudio(pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	frame := realtimeInputMessage{RealtimeInput: realtimeInput{
		MediaChunks: []inlineData{{MimeType: inputMimeType, Data: base64.StdEncoding.EncodeToString(pcm)}},
	}}
	return c.enqueue(frame, true)
}

// SendText queues a user text turn as an alternate input modality.
func (c *Client) SendText(text string) error {
	frame := clientContentMessage{ClientContent: clientContent{
		Turns:        []content{{Role: "user", Parts: []part{{Text: text}}}},
		TurnComplete: true,
	}}
	return c.enqueue(frame, false)
}

// SendToolResponse acknowledges a tool call.
func (c *Client) SendToolResponse(id, name string, result map[string]any) error {
	frame := toolResponseMessage{ToolResponse: toolResponse{
		FunctionResponses: []functionResponse{{ID: id, Name: name, Response: result}},
	}}
	return c.enqueue(frame, false)
}

// Interrupt yields the current assistant turn so the user can speak.
func (c *Client) Interrupt() error {
	frame := clientContentMessage{ClientContent: clientContent{TurnComplete: true}}
	return c.enqueue(frame, false)
}

// enqueue places a frame on the outbound queue. Audio frames may be dropped
// under backpressure; text and control frames never are.
func (c *Client) enqueue(frame any, droppable bool) error {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	if !connected {
		return errors.New("live: not connected")
	}
	if droppable {
		select {
		case c.outbound <- frame:
		default:
			log.Println("live: outbound buffer full, dropping audio chunk")
		}
		return nil
	}
	select {
	case c.outbound <- frame:
		return nil
	case <-c.stopCh:
		return errors.New("live: connection closed")
	}
}

// Close shuts down the connection. Safe to call on an already-closed client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}
	c.connected = false
	close(c.stopCh)
	if c.conn != nil {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		_ = c.conn.Close()
	}
	log.Println("live: connection closed")
	return nil
}

func (c *Client) closing() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

func (c *Client) writeLoop() {
	for {
		select {
		case <-c.stopCh:
			return
		case frame := <-c.outbound:
			c.mu.RLock()
			conn := c.conn
			c.mu.RUnlock()
			if conn == nil {
				return
			}
			if err := conn.WriteJSON(frame); err != nil {
				if !c.closing() {
					log.Printf("live: write error: %v", err)
				}
				return
			}
		}
	}
}

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if c.closing() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			c.emit(ErrorEvent{Err: err})
			return
		}
		c.processFrame(payload)
	}
}

// processFrame demultiplexes one inbound frame into zero or more events.
func (c *Client) processFrame(payload []byte) {
	var msg serverMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Printf("live: bad frame: %v", err)
		return
	}
	switch {
	case msg.ServerContent != nil:
		c.processServerContent(msg.ServerContent)
	case msg.ToolCall != nil:
		for _, fn := range msg.ToolCall.FunctionCalls {
			if c.opts.MuteTool != "" && fn.Name == c.opts.MuteTool {
				// Silence is the entire response: swallow everything else
				// this turn, retract what already went out.
				c.mutedTurn = c.turn
				c.emit(TurnMutedEvent{Turn: c.turn})
				continue
			}
			c.emit(ToolCallEvent{ID: fn.ID, Name: fn.Name, Args: fn.Args})
		}
	case msg.GoAway != nil:
		c.emit(ErrorEvent{Err: ErrServerClosing})
	case msg.SetupComplete != nil:
		// Already consumed during Connect; late duplicates are harmless.
	}
}

func (c *Client) processServerContent(sc *serverContent) {
	muted := c.mutedTurn == c.turn
	if sc.Interrupted {
		c.emit(InterruptedEvent{Turn: c.turn})
	}
	if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
		c.emit(UserTranscriptEvent{Turn: c.turn, Text: sc.InputTranscription.Text})
	}
	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" && !muted {
		c.emit(AssistantTextEvent{Turn: c.turn, Text: sc.OutputTranscription.Text})
	}
	if sc.ModelTurn != nil && !muted {
		for _, p := range sc.ModelTurn.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" {
				raw, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
				if err != nil {
					log.Printf("live: bad audio chunk: %v", err)
					continue
				}
				c.emit(AudioChunkEvent{Turn: c.turn, Data: raw})
			}
			if p.Text != "" {
				c.emit(AssistantTextEvent{Turn: c.turn, Text: p.Text})
			}
		}
	}
	if sc.TurnComplete {
		c.emit(TurnCompleteEvent{Turn: c.turn})
		c.turn++
		c.mutedTurn = -1
	}
}

// emit delivers in order; it blocks rather than drop, bailing out on shutdown.
func (c *Client) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.stopCh:
	}
}
