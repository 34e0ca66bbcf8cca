package semantic

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const longTranscript = "user: honestly this week has been a lot, work keeps piling up and I have not been sleeping well at all. assistant: that sounds exhausting, tell me more about the sleep."

func newTestClient(url string) *Client {
	c := NewClient("key", "model")
	c.Endpoint = url
	c.HTTPClient = &http.Client{Timeout: 2 * time.Second}
	return c
}

func TestSynthesize_NoKey(t *testing.T) {
	c := NewClient("", "model")
	if _, err := c.Synthesize(context.Background(), longTranscript); err == nil {
		t.Fatalf("expected error with missing key")
	}
}

func TestSynthesize_TooLittleData(t *testing.T) {
	c := NewClient("key", "model")
	_, err := c.Synthesize(context.Background(), "hi")
	if !errors.Is(err, ErrTooLittleData) {
		t.Fatalf("expected ErrTooLittleData, got %v", err)
	}
}

func TestSynthesize_ParsesReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("missing auth header: %q", got)
		}
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":
			"Here you go:\n{\"stressScore\": 62, \"fatigueScore\": 78, \"confidence\": 0.7, \"summary\": \"a hard week\", \"suggestions\": [\"wind down earlier\", \"short walk after lunch\"]}"}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	got, err := c.Synthesize(context.Background(), longTranscript)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if got.Semantic == nil || got.Semantic.StressScore != 62 || got.Semantic.FatigueScore != 78 {
		t.Fatalf("scores not parsed: %+v", got.Semantic)
	}
	if len(got.Suggestions) != 2 || got.Suggestions[0] != "wind down earlier" {
		t.Fatalf("suggestions not parsed: %+v", got.Suggestions)
	}
	if got.Summary != "a hard week" {
		t.Fatalf("summary not parsed: %q", got.Summary)
	}
}

func TestSynthesize_RetriesTransientThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"stressScore\":10,\"fatigueScore\":10,\"confidence\":0.5,\"summary\":\"ok\",\"suggestions\":[]}"}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	got, err := c.Synthesize(context.Background(), longTranscript)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if got.Semantic.StressScore != 10 {
		t.Fatalf("unexpected result: %+v", got.Semantic)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("expected 3 attempts, got %d", n)
	}
}

func TestSynthesize_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.Synthesize(context.Background(), longTranscript); err == nil {
		t.Fatalf("expected error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("4xx must not be retried, got %d attempts", n)
	}
}

func TestSynthesize_AbortHonored(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := newTestClient(srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	if _, err := c.Synthesize(ctx, longTranscript); err == nil {
		t.Fatalf("expected abort error")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("cancel was not honored promptly")
	}
}

func TestParseSynthesis_NoJSON(t *testing.T) {
	if _, err := parseSynthesis("no object here"); err == nil {
		t.Fatalf("expected error for reply without JSON")
	}
}
