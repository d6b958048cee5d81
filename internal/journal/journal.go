// ABOUTME: Local action journal recording confirmed directory mutations.
// ABOUTME: Store interface with a SQLite implementation and an in-memory mock.

package journal

import (
	"context"
	"time"
)

// Actions recorded in the journal.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Entry is one confirmed mutation of the user directory.
type Entry struct {
	ID      string
	Action  string
	UserID  string
	Message string
	At      time.Time
}

// Store records and lists journal entries.
type Store interface {
	// Record appends one entry. The implementation assigns ID and At.
	Record(ctx context.Context, action, userID, message string) error

	// List returns the most recent entries, newest first, up to limit.
	List(ctx context.Context, limit int) ([]Entry, error)

	Close() error
}
