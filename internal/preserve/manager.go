// Package preserve parks an in-flight check-in so the app can background and
// later resume it, but only when the conversational context is provably
// unchanged. Anything uncertain fails closed to a fresh session.
package preserve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/seanesla/kanari-sub005/internal/session"
)

// ErrStaleContext means the preserved session no longer matches the current
// context (or the check could not finish in time) and was discarded.
var ErrStaleContext = session.ErrStaleContext

// ErrNothingPreserved means no handle exists.
var ErrNothingPreserved = errors.New("nothing preserved")

// handleKey is the single slot a preserved session occupies; preserving again
// overwrites it.
const handleKey = "preserved:current"

// fingerprintTimeout bounds how long a resume may spend recomputing the
// context fingerprint before failing closed.
const fingerprintTimeout = 1500 * time.Millisecond

// Handle is the stored preservation record.
type Handle struct {
	Fingerprint uint64          `json:"fingerprint"`
	SavedAt     time.Time       `json:"savedAt"`
	Session     json.RawMessage `json:"session"`
}

// Bin is the slice of the entity store the manager needs.
type Bin interface {
	Put(ctx context.Context, key string, v interface{}) error
	Get(ctx context.Context, key string, dst interface{}) error
	Delete(ctx context.Context, key string) error
}

// Fingerprint hashes the recent-history digest together with the settings
// snapshot. Any drift in either changes the value.
func Fingerprint(historyDigest, settings string) uint64 {
	return xxhash.Sum64String(historyDigest + "\x00" + settings)
}

// Manager owns the single preserved-session slot.
type Manager struct {
	bin Bin
	now func() time.Time
}

func NewManager(bin Bin) *Manager {
	return &Manager{bin: bin, now: time.Now}
}

// Preserve serializes the partial session and stores it under the current
// context fingerprint, replacing any earlier handle.
func (m *Manager) Preserve(ctx context.Context, sess *session.Session, historyDigest, settings string) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("serialize session: %w", err)
	}
	h := Handle{
		Fingerprint: Fingerprint(historyDigest, settings),
		SavedAt:     m.now(),
		Session:     raw,
	}
	if err := m.bin.Put(ctx, handleKey, h); err != nil {
		return fmt.Errorf("store preserved session: %w", err)
	}
	return nil
}

// HasPreserved reports whether a handle exists.
func (m *Manager) HasPreserved(ctx context.Context) bool {
	var h Handle
	return m.bin.Get(ctx, handleKey, &h) == nil
}

// ContextFingerprint returns the stored fingerprint, or ErrNothingPreserved.
func (m *Manager) ContextFingerprint(ctx context.Context) (uint64, error) {
	var h Handle
	if err := m.bin.Get(ctx, handleKey, &h); err != nil {
		return 0, ErrNothingPreserved
	}
	return h.Fingerprint, nil
}

// Clear drops the preserved handle, if any.
func (m *Manager) Clear(ctx context.Context) {
	if err := m.bin.Delete(ctx, handleKey); err != nil {
		log.Printf("preserve: clear handle: %v", err)
	}
}

// Resume validates the preserved handle against the current context and, on
// an exact fingerprint match, returns the rehydrated session. digest is
// called to recompute the current history digest; it races a fixed deadline.
// A timeout, a digest error, or a fingerprint mismatch all fail closed: the
// handle is cleared and ErrStaleContext is returned. The handle is consumed
// on success as well; a resumed session cannot be resumed twice.
func (m *Manager) Resume(ctx context.Context, digest func(context.Context) (string, error), settings string) (*session.Session, error) {
	var h Handle
	if err := m.bin.Get(ctx, handleKey, &h); err != nil {
		return nil, ErrNothingPreserved
	}

	dctx, cancel := context.WithTimeout(ctx, fingerprintTimeout)
	defer cancel()

	type result struct {
		digest string
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		d, err := digest(dctx)
		ch <- result{d, err}
	}()

	var current string
	select {
	case r := <-ch:
		if r.err != nil {
			log.Printf("preserve: digest failed, discarding handle: %v", r.err)
			m.Clear(ctx)
			return nil, ErrStaleContext
		}
		current = r.digest
	case <-dctx.Done():
		log.Printf("preserve: fingerprint check timed out, discarding handle")
		m.Clear(ctx)
		return nil, ErrStaleContext
	}

	if Fingerprint(current, settings) != h.Fingerprint {
		log.Printf("preserve: fingerprint mismatch, discarding handle")
		m.Clear(ctx)
		return nil, ErrStaleContext
	}

	var sess session.Session
	if err := json.Unmarshal(h.Session, &sess); err != nil {
		m.Clear(ctx)
		return nil, fmt.Errorf("rehydrate session: %w", err)
	}
	m.Clear(ctx)
	return &sess, nil
}
