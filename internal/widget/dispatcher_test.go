package widget

import "testing"

func TestDispatch_CreatesTypedWidget(t *testing.T) {
	d := NewDispatcher()
	w := d.Dispatch("breathing_exercise", map[string]interface{}{
		"technique":       "box",
		"durationSeconds": float64(120),
	})
	if w == nil {
		t.Fatalf("expected widget")
	}
	if w.Type != TypeBreathingExercise {
		t.Fatalf("wrong type: %s", w.Type)
	}
	p, ok := w.Payload.(*BreathingPayload)
	if !ok {
		t.Fatalf("wrong payload type: %T", w.Payload)
	}
	if p.Technique != "box" || p.DurationSec != 120 {
		t.Fatalf("payload not decoded: %+v", p)
	}
	if w.ID == "" {
		t.Fatalf("expected an id")
	}
}

func TestDispatch_UnknownNameIgnored(t *testing.T) {
	d := NewDispatcher()
	if w := d.Dispatch("made_up_tool", nil); w != nil {
		t.Fatalf("unknown tool must be ignored, got %+v", w)
	}
	if len(d.Active()) != 0 {
		t.Fatalf("no widget should exist")
	}
}

func TestDispatch_MuteToolNeverCreatesWidget(t *testing.T) {
	d := NewDispatcher()
	if w := d.Dispatch(MuteToolName, nil); w != nil {
		t.Fatalf("mute pseudo-tool must not create a widget")
	}
}

func TestDispatch_ArrivalOrderPreserved(t *testing.T) {
	d := NewDispatcher()
	first := d.Dispatch("stress_gauge", map[string]interface{}{"score": float64(40)})
	second := d.Dispatch("journal_prompt", map[string]interface{}{"prompt": "how was today?"})
	active := d.Active()
	if len(active) != 2 || active[0].ID != first.ID || active[1].ID != second.ID {
		t.Fatalf("creation order not preserved")
	}
}

func TestDismiss_OutOfOrderAndFocusClear(t *testing.T) {
	d := NewDispatcher()
	a := d.Dispatch("quick_actions", map[string]interface{}{"actions": []interface{}{"walk"}})
	b := d.Dispatch("stress_gauge", map[string]interface{}{"score": float64(70)})
	c := d.Dispatch("journal_prompt", map[string]interface{}{"prompt": "p"})

	d.Focus(b.ID)
	if d.Focused() != b.ID {
		t.Fatalf("expected %s focused", b.ID)
	}

	d.Dismiss(b.ID) // middle, out of order
	if d.Focused() != "" {
		t.Fatalf("dismissing the focused widget must clear focus")
	}
	active := d.Active()
	if len(active) != 2 || active[0].ID != a.ID || active[1].ID != c.ID {
		t.Fatalf("unexpected active set after dismiss")
	}

	d.Dismiss("missing") // no-op
	if len(d.Active()) != 2 {
		t.Fatalf("dismissing an unknown id must be a no-op")
	}
}

func TestFocus_ExclusiveAndUnknownIgnored(t *testing.T) {
	d := NewDispatcher()
	a := d.Dispatch("stress_gauge", map[string]interface{}{"score": float64(10)})
	b := d.Dispatch("stress_gauge", map[string]interface{}{"score": float64(20)})

	d.Focus(a.ID)
	d.Focus(b.ID)
	if d.Focused() != b.ID {
		t.Fatalf("focus must move to the last focused widget")
	}

	d.Focus("missing")
	if d.Focused() != b.ID {
		t.Fatalf("focusing an unknown id must not change focus")
	}
}

func TestReset_ClearsEverything(t *testing.T) {
	d := NewDispatcher()
	w := d.Dispatch("journal_prompt", map[string]interface{}{"prompt": "p"})
	d.Focus(w.ID)
	d.Reset()
	if len(d.Active()) != 0 || d.Focused() != "" {
		t.Fatalf("reset must drop widgets and focus")
	}
}
