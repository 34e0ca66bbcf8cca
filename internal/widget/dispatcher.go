// Package widget maps conversational tool calls onto typed in-session
// widgets and tracks their lifecycle.
package widget

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type identifies a widget variant.
type Type string

const (
	TypeScheduleActivity  Type = "schedule_activity"
	TypeBreathingExercise Type = "breathing_exercise"
	TypeStressGauge       Type = "stress_gauge"
	TypeQuickActions      Type = "quick_actions"
	TypeJournalPrompt     Type = "journal_prompt"
)

// MuteToolName is the pseudo-tool the model calls to stay silent for a turn.
// It is recognized here so callers can filter it, but it never creates a
// widget; the transport and state machine own its semantics.
const MuteToolName = "stay_silent"

// SchedulePayload proposes a calendar entry. Scheduling itself is the host
// app's job; the widget only carries the proposal.
type SchedulePayload struct {
	Title       string `json:"title"`
	StartTime   string `json:"startTime,omitempty"`
	DurationMin int    `json:"durationMinutes,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// BreathingPayload configures a guided breathing exercise.
type BreathingPayload struct {
	Technique   string `json:"technique,omitempty"`
	DurationSec int    `json:"durationSeconds,omitempty"`
}

// GaugePayload shows the current stress reading.
type GaugePayload struct {
	Score float64 `json:"score"`
	Label string  `json:"label,omitempty"`
}

// QuickActionsPayload offers a short list of tappable follow-ups.
type QuickActionsPayload struct {
	Actions []string `json:"actions"`
}

// JournalPayload seeds a journaling entry.
type JournalPayload struct {
	Prompt string `json:"prompt"`
}

// Widget is one dispatched UI element.
type Widget struct {
	ID        string      `json:"id"`
	Type      Type        `json:"type"`
	Payload   interface{} `json:"payload"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Dispatcher turns tool calls into widgets and tracks which are active and
// which one, at most, holds focus.
type Dispatcher struct {
	mu      sync.Mutex
	active  []*Widget
	focused string
	now     func() time.Time
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{now: time.Now}
}

// Dispatch creates a widget for a tool call. Unknown tool names are ignored
// and logged; the conversation must not fail because the model invented a
// tool. The mute pseudo-tool is also ignored here. Returns the created widget
// or nil.
func (d *Dispatcher) Dispatch(name string, args map[string]interface{}) *Widget {
	typ, ok := typeForTool(name)
	if !ok {
		if name != MuteToolName {
			log.Printf("widget: ignoring unknown tool %q", name)
		}
		return nil
	}
	payload, err := payloadFor(typ, args)
	if err != nil {
		log.Printf("widget: bad args for %s: %v", name, err)
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	w := &Widget{
		ID:        uuid.NewString(),
		Type:      typ,
		Payload:   payload,
		CreatedAt: d.now(),
	}
	d.active = append(d.active, w)
	return w
}

// Dismiss removes a widget by id, in any order. Dismissing the focused widget
// clears focus. Unknown ids are a no-op.
func (d *Dispatcher) Dismiss(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, w := range d.active {
		if w.ID == id {
			d.active = append(d.active[:i], d.active[i+1:]...)
			if d.focused == id {
				d.focused = ""
			}
			return
		}
	}
}

// Focus marks a widget as focused; at most one holds focus at a time.
// Focusing an unknown id is a no-op.
func (d *Dispatcher) Focus(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, w := range d.active {
		if w.ID == id {
			d.focused = id
			return
		}
	}
}

// Focused returns the id of the focused widget, or "".
func (d *Dispatcher) Focused() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.focused
}

// Active returns the active widgets in creation order.
func (d *Dispatcher) Active() []*Widget {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Widget, len(d.active))
	copy(out, d.active)
	return out
}

// Reset drops all widgets and focus. Called when a session is discarded.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active = nil
	d.focused = ""
}

func typeForTool(name string) (Type, bool) {
	switch Type(name) {
	case TypeScheduleActivity, TypeBreathingExercise, TypeStressGauge,
		TypeQuickActions, TypeJournalPrompt:
		return Type(name), true
	}
	return "", false
}

func payloadFor(typ Type, args map[string]interface{}) (interface{}, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode args: %w", err)
	}
	var dst interface{}
	switch typ {
	case TypeScheduleActivity:
		dst = &SchedulePayload{}
	case TypeBreathingExercise:
		dst = &BreathingPayload{}
	case TypeStressGauge:
		dst = &GaugePayload{}
	case TypeQuickActions:
		dst = &QuickActionsPayload{}
	case TypeJournalPrompt:
		dst = &JournalPayload{}
	default:
		return nil, fmt.Errorf("no payload for %s", typ)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", typ, err)
	}
	return dst, nil
}
