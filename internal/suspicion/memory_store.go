package suspicion

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*UserRecord
}

// NewMemoryStore creates an in-memory suspicion store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*UserRecord),
	}
}

func (s *MemoryStore) GetOrCreate(ctx context.Context, userID string) (*UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	rec, ok := s.users[userID]
	if !ok {
		rec = &UserRecord{
			UserID:         userID,
			SuspicionScore: 0.0,
			LastSeen:       now,
			CreatedAt:      now,
		}
		s.users[userID] = rec
	} else {
		rec.LastSeen = now
	}

	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (*UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) UpdateScore(ctx context.Context, userID string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	score = clampScore(score)
	now := time.Now().UTC()

	rec, ok := s.users[userID]
	if !ok {
		s.users[userID] = &UserRecord{
			UserID:         userID,
			SuspicionScore: score,
			LastSeen:       now,
			CreatedAt:      now,
		}
		return nil
	}
	rec.SuspicionScore = score
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*UserRecord, 0, len(s.users))
	for _, rec := range s.users {
		cp := *rec
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UserID < result[j].UserID
	})
	return result, nil
}
