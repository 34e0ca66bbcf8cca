package live

// Event is an inbound transport event, delivered in receipt order.
type Event interface {
	eventType() string
}

// AudioChunkEvent carries 24kHz mono PCM16LE assistant audio for playback.
type AudioChunkEvent struct {
	Turn int
	Data []byte
}

func (AudioChunkEvent) eventType() string { return "audio_chunk" }

// AssistantTextEvent is an incremental transcript delta of assistant speech.
type AssistantTextEvent struct {
	Turn int
	Text string
}

func (AssistantTextEvent) eventType() string { return "assistant_text" }

// UserTranscriptEvent is an incremental transcript delta of user speech.
type UserTranscriptEvent struct {
	Turn int
	Text string
}

func (UserTranscriptEvent) eventType() string { return "user_transcript" }

// TurnCompleteEvent marks the end of an assistant turn.
type TurnCompleteEvent struct {
	Turn int
}

func (TurnCompleteEvent) eventType() string { return "turn_complete" }

// InterruptedEvent signals the model acknowledged a barge-in and stopped generating.
type InterruptedEvent struct {
	Turn int
}

func (InterruptedEvent) eventType() string { return "interrupted" }

// ToolCallEvent is a structured tool invocation requested by the model.
type ToolCallEvent struct {
	ID   string
	Name string
	Args map[string]any
}

func (ToolCallEvent) eventType() string { return "tool_call" }

// TurnMutedEvent signals the model called the mute tool: silence is the entire
// response for this turn. Any content already delivered for the turn must be
// discarded by the consumer; the client swallows the remainder itself.
type TurnMutedEvent struct {
	Turn int
}

func (TurnMutedEvent) eventType() string { return "turn_muted" }

// ErrorEvent surfaces an unrecoverable transport failure.
type ErrorEvent struct {
	Err error
}

func (ErrorEvent) eventType() string { return "error" }
