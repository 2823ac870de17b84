// ABOUTME: SQLite-backed write-behind log of conversation entries.
// ABOUTME: Diagnostics only; the in-memory session stays the source of truth.

// Package transcript records conversation entries to a local SQLite file so
// past exchanges survive for inspection. It is not session persistence:
// sessions always start empty.
package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nimesha-dev/vmarket/internal/session"
)

// Store appends conversation entries to a SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the transcript database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create transcript directory: %w", err)
		}
	}

	dsn := path + "?_journal=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open transcript database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		is_error INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_client ON messages(client_id, id);
	`
	_, err := s.db.Exec(query)
	return err
}

// Record appends one conversation entry for the given client identity.
func (s *Store) Record(ctx context.Context, clientID string, msg session.Message) error {
	isError := 0
	if msg.IsError {
		isError = 1
	}
	at := msg.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (client_id, role, content, is_error, created_at) VALUES (?, ?, ?, ?, ?)`,
		clientID, string(msg.Role), msg.Content, isError, at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record message: %w", err)
	}
	return nil
}

// Entry is one recorded transcript row.
type Entry struct {
	ClientID string
	Role     session.Role
	Content  string
	IsError  bool
	At       time.Time
}

// Recent returns up to limit entries for a client, oldest first.
func (s *Store) Recent(ctx context.Context, clientID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT client_id, role, content, is_error, created_at
		 FROM (
			SELECT id, client_id, role, content, is_error, created_at
			FROM messages WHERE client_id = ?
			ORDER BY id DESC LIMIT ?
		 ) ORDER BY id ASC`,
		clientID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var role string
		var isError int
		var at int64
		if err := rows.Scan(&e.ClientID, &role, &e.Content, &isError, &at); err != nil {
			return nil, fmt.Errorf("scan transcript row: %w", err)
		}
		e.Role = session.Role(role)
		e.IsError = isError != 0
		e.At = time.UnixMilli(at)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
