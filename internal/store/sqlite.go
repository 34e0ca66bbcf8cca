// Package store is the local key-indexed entity store. Every record is one
// row in a single entities table, keyed by a namespaced string and holding a
// JSON value, so new record kinds never need a migration.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/seanesla/kanari-sub005/internal/session"
)

// ErrNotFound is returned when a key has no row.
var ErrNotFound = errors.New("store: not found")

const schema = `
CREATE TABLE IF NOT EXISTS entities (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// Store is a SQLite-backed entity store. Safe for concurrent use; database/sql
// owns the connection pool.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
// Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %s: %w", path, err)
	}
	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put upserts a JSON-encoded value under key.
func (s *Store) Put(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entities (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(raw), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Get decodes the value under key into dst. Returns ErrNotFound for a
// missing key.
func (s *Store) Get(ctx context.Context, key string, dst interface{}) error {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM entities WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting a missing key is a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func sessionKey(id string) string    { return "session:" + id }
func suggestionKey(id string) string { return "suggestion:" + id }

// SaveSession writes a completed session record.
func (s *Store) SaveSession(ctx context.Context, sess *session.Session) error {
	return s.Put(ctx, sessionKey(sess.ID), sess)
}

// UpdateSession rewrites an existing session record. Same upsert as
// SaveSession; kept separate so call sites read correctly.
func (s *Store) UpdateSession(ctx context.Context, sess *session.Session) error {
	return s.Put(ctx, sessionKey(sess.ID), sess)
}

// LoadRecentHistory returns up to limit sessions, most recent first.
func (s *Store) LoadRecentHistory(ctx context.Context, limit int) ([]*session.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT value FROM entities WHERE key LIKE 'session:%' ORDER BY updated_at DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var out []*session.Session
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		var sess session.Session
		if err := json.Unmarshal([]byte(raw), &sess); err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
		out = append(out, &sess)
	}
	return out, rows.Err()
}

// AppendSuggestion stores one post-session suggestion. Assigns an id when the
// caller left it empty.
func (s *Store) AppendSuggestion(ctx context.Context, sg *session.Suggestion) error {
	if sg.ID == "" {
		sg.ID = uuid.NewString()
	}
	return s.Put(ctx, suggestionKey(sg.ID), sg)
}
