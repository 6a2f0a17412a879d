package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists activity log entries. Entries are append-only.
type Store interface {
	Append(ctx context.Context, entry *ActivityLogEntry) error
	List(ctx context.Context, userID int64, limit int) ([]*ActivityLogEntry, error)
}

// InMemoryStore is a threadsafe in-memory store for tests
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []*ActivityLogEntry
	now     func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{now: time.Now}
}

func (s *InMemoryStore) Append(ctx context.Context, entry *ActivityLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	cp := *entry
	s.entries = append(s.entries, &cp)
	return nil
}

func (s *InMemoryStore) List(ctx context.Context, userID int64, limit int) ([]*ActivityLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ActivityLogEntry, 0)
	// newest first
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].UserID != userID {
			continue
		}
		cp := *s.entries[i]
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
