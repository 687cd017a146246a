package querylog

import (
	"context"
	"sync"
	"time"
)

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*Entry
}

// NewMemoryStore creates an in-memory query log store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *entry
	s.entries = append(s.entries, &cp)
	return nil
}

func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(limit, func(*Entry) bool { return true }), nil
}

func (s *MemoryStore) ListAudited(ctx context.Context, limit int) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(limit, (*Entry).FullyAudited), nil
}

func (s *MemoryStore) CountByUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.entries {
		if e.UserID == userID && !e.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

// collect walks entries newest-first and copies matches up to limit.
// Caller must hold at least a read lock.
func (s *MemoryStore) collect(limit int, match func(*Entry) bool) []*Entry {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	result := make([]*Entry, 0, limit)
	for i := len(s.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if match(s.entries[i]) {
			cp := *s.entries[i]
			result = append(result, &cp)
		}
	}
	return result
}
