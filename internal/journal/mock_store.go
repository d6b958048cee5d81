// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package journal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{}
}

// Record appends one entry.
func (m *MockStore) Record(ctx context.Context, action, userID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Entry{
		ID:      uuid.NewString(),
		Action:  action,
		UserID:  userID,
		Message: message,
		At:      time.Now().UTC(),
	})
	return nil
}

// List returns the most recent entries, newest first, up to limit.
func (m *MockStore) List(ctx context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.entries) {
		limit = len(m.entries)
	}
	out := make([]Entry, 0, limit)
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

// Close is a no-op for the mock.
func (m *MockStore) Close() error { return nil }

// Entries returns a copy of everything recorded, oldest first.
func (m *MockStore) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}
