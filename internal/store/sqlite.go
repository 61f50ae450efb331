package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"grocery-autocart/pkg/models"
)

const sessionsSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id               TEXT PRIMARY KEY,
	phone_number     TEXT NOT NULL,
	platform         TEXT NOT NULL,
	state            TEXT NOT NULL,
	cookies          TEXT NOT NULL DEFAULT '[]',
	current_url      TEXT NOT NULL DEFAULT '',
	dom_snapshot     TEXT NOT NULL DEFAULT '',
	is_authenticated INTEGER NOT NULL DEFAULT 0,
	failure_reason   TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMP NOT NULL,
	updated_at       TIMESTAMP NOT NULL
);`

// SQLiteStore is the durable session store. Records have no TTL; they live
// until deleted by cleanup.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// modernc sqlite is in-process; a single connection avoids writer contention.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sessionsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save upserts the session record by id.
func (s *SQLiteStore) Save(ctx context.Context, session *models.SessionData) error {
	cookies, err := json.Marshal(session.Cookies)
	if err != nil {
		return fmt.Errorf("failed to encode cookies: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions
			(id, phone_number, platform, state, cookies, current_url, dom_snapshot,
			 is_authenticated, failure_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state            = excluded.state,
			cookies          = excluded.cookies,
			current_url      = excluded.current_url,
			dom_snapshot     = excluded.dom_snapshot,
			is_authenticated = excluded.is_authenticated,
			failure_reason   = excluded.failure_reason,
			updated_at       = excluded.updated_at`,
		session.ID, session.PhoneNumber, session.Platform, string(session.State),
		string(cookies), session.CurrentURL, session.DOMSnapshot,
		session.IsAuthenticated, session.FailureReason,
		session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

// Get returns the session record or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.SessionData, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, phone_number, platform, state, cookies, current_url,
		       dom_snapshot, is_authenticated, failure_reason, created_at, updated_at
		FROM sessions WHERE id = ?`, id)

	var (
		session models.SessionData
		state   string
		cookies string
	)
	err := row.Scan(&session.ID, &session.PhoneNumber, &session.Platform, &state,
		&cookies, &session.CurrentURL, &session.DOMSnapshot,
		&session.IsAuthenticated, &session.FailureReason,
		&session.CreatedAt, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	session.State = models.SessionState(state)
	if err := json.Unmarshal([]byte(cookies), &session.Cookies); err != nil {
		return nil, fmt.Errorf("failed to decode cookies for session %s: %w", id, err)
	}
	return &session, nil
}

// Delete removes the record. Deleting an unknown id is a no-op.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
