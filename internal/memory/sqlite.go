package memory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists session history in a local SQLite database.
// Appends trim-on-write; writers do not coordinate beyond SQLite's own
// statement atomicity.
type SQLiteStore struct {
	db    *sql.DB
	limit int
	ttl   time.Duration
}

func NewSQLiteStore(dbPath string, limit int, ttl time.Duration) (*SQLiteStore, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("history limit must be positive, got %d", limit)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &SQLiteStore{db: db, limit: limit, ttl: ttl}
	if err := s.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *SQLiteStore) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS session_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			intent TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_session ON session_history(session_id, id)`,
		`CREATE INDEX IF NOT EXISTS idx_history_created ON session_history(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) History(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, intent, created_at FROM (
			SELECT id, role, content, intent, created_at
			FROM session_history
			WHERE session_id = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC`,
		sessionID, s.limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Role, &e.Content, &e.Intent, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) Append(ctx context.Context, sessionID string, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_history (session_id, role, content, intent)
		VALUES (?, ?, ?, ?)`,
		sessionID, e.Role, e.Content, e.Intent)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	// Trim to the most recent limit entries.
	_, err = s.db.ExecContext(ctx, `
		DELETE FROM session_history
		WHERE session_id = ? AND id NOT IN (
			SELECT id FROM session_history
			WHERE session_id = ?
			ORDER BY id DESC
			LIMIT ?
		)`,
		sessionID, sessionID, s.limit)
	if err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM session_history WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SweepExpired(ctx context.Context) (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := fmt.Sprintf("-%d seconds", int(s.ttl.Seconds()))
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM session_history WHERE session_id IN (
			SELECT session_id FROM session_history
			GROUP BY session_id
			HAVING MAX(created_at) < datetime('now', ?)
		)`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep result: %w", err)
	}
	return int(n), nil
}
