// ABOUTME: SQLite implementation of the journal Store using modernc.org/sqlite
// ABOUTME: Append-only log of admin actions with automatic schema creation

package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a journal at the given path. The schema is
// created if it doesn't exist; parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "journal")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Debug("journal initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS actions (
			id TEXT PRIMARY KEY,
			action TEXT NOT NULL,
			user_id TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_actions_created_at ON actions(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends one entry with a generated ID and the current time.
func (s *SQLiteStore) Record(ctx context.Context, action, userID, message string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO actions (id, action, user_id, message, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), action, userID, message, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording action: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first, up to limit.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	// rowid breaks timestamp ties in insertion order.
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, user_id, message, created_at FROM actions ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing actions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Action, &e.UserID, &e.Message, &e.At); err != nil {
			return nil, fmt.Errorf("scanning action: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
