package preserve

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/seanesla/kanari-sub005/internal/session"
)

// memBin is an in-memory Bin for tests.
type memBin struct {
	mu sync.Mutex
	m  map[string]Handle
}

func newMemBin() *memBin { return &memBin{m: make(map[string]Handle)} }

func (b *memBin) Put(_ context.Context, key string, v interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.m[key] = v.(Handle)
	return nil
}

func (b *memBin) Get(_ context.Context, key string, dst interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.m[key]
	if !ok {
		return errors.New("not found")
	}
	*dst.(*Handle) = h
	return nil
}

func (b *memBin) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.m, key)
	return nil
}

func testSession() *session.Session {
	return &session.Session{
		ID: "s1",
		Messages: []session.Message{
			{ID: "m1", Role: session.RoleUser, Content: "hello"},
			{ID: "m2", Role: session.RoleAssistant, Content: "hi, how are you?"},
		},
	}
}

func TestResume_ExactMatchRestoresMessages(t *testing.T) {
	m := NewManager(newMemBin())
	ctx := context.Background()

	if err := m.Preserve(ctx, testSession(), "digest-v1", "voice=Aoede"); err != nil {
		t.Fatalf("preserve: %v", err)
	}
	if !m.HasPreserved(ctx) {
		t.Fatalf("expected a preserved handle")
	}

	got, err := m.Resume(ctx, func(context.Context) (string, error) { return "digest-v1", nil }, "voice=Aoede")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if got.ID != "s1" || len(got.Messages) != 2 || got.Messages[0].Content != "hello" {
		t.Fatalf("session not restored: %+v", got)
	}
	if m.HasPreserved(ctx) {
		t.Fatalf("handle must be consumed on success")
	}
}

func TestResume_FingerprintMismatchFailsClosed(t *testing.T) {
	m := NewManager(newMemBin())
	ctx := context.Background()

	if err := m.Preserve(ctx, testSession(), "digest-v1", "voice=Aoede"); err != nil {
		t.Fatalf("preserve: %v", err)
	}
	_, err := m.Resume(ctx, func(context.Context) (string, error) { return "digest-v2", nil }, "voice=Aoede")
	if !errors.Is(err, ErrStaleContext) {
		t.Fatalf("expected ErrStaleContext, got %v", err)
	}
	if m.HasPreserved(ctx) {
		t.Fatalf("stale handle must be cleared")
	}
}

func TestResume_SettingsChangeFailsClosed(t *testing.T) {
	m := NewManager(newMemBin())
	ctx := context.Background()

	if err := m.Preserve(ctx, testSession(), "digest-v1", "voice=Aoede"); err != nil {
		t.Fatalf("preserve: %v", err)
	}
	_, err := m.Resume(ctx, func(context.Context) (string, error) { return "digest-v1", nil }, "voice=Puck")
	if !errors.Is(err, ErrStaleContext) {
		t.Fatalf("expected ErrStaleContext, got %v", err)
	}
}

func TestResume_DigestTimeoutFailsClosed(t *testing.T) {
	m := NewManager(newMemBin())
	ctx := context.Background()

	if err := m.Preserve(ctx, testSession(), "digest-v1", "voice=Aoede"); err != nil {
		t.Fatalf("preserve: %v", err)
	}
	slow := func(ctx context.Context) (string, error) {
		select {
		case <-time.After(5 * time.Second):
			return "digest-v1", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	start := time.Now()
	_, err := m.Resume(ctx, slow, "voice=Aoede")
	if !errors.Is(err, ErrStaleContext) {
		t.Fatalf("expected ErrStaleContext, got %v", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Fatalf("resume did not honor the deadline")
	}
	if m.HasPreserved(ctx) {
		t.Fatalf("handle must be cleared after timeout")
	}
}

func TestResume_NothingPreserved(t *testing.T) {
	m := NewManager(newMemBin())
	_, err := m.Resume(context.Background(), func(context.Context) (string, error) { return "", nil }, "")
	if !errors.Is(err, ErrNothingPreserved) {
		t.Fatalf("expected ErrNothingPreserved, got %v", err)
	}
}

func TestPreserve_Overwrites(t *testing.T) {
	m := NewManager(newMemBin())
	ctx := context.Background()

	if err := m.Preserve(ctx, testSession(), "d1", "s"); err != nil {
		t.Fatalf("preserve: %v", err)
	}
	fp1, _ := m.ContextFingerprint(ctx)
	if err := m.Preserve(ctx, testSession(), "d2", "s"); err != nil {
		t.Fatalf("preserve again: %v", err)
	}
	fp2, _ := m.ContextFingerprint(ctx)
	if fp1 == fp2 {
		t.Fatalf("expected the handle to be replaced")
	}
}
