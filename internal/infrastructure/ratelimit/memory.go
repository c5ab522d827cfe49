package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps last-import times in process memory. Reserve is a
// compare-and-swap under one lock, so two concurrent submissions for
// the same key can never both claim an open window. Entries are never
// evicted: cardinality equals the number of tenants, not the number of
// requests, so the map stays small for the life of the process. Swap
// in an external keyed store behind the same port when rate-limit
// state must survive restarts.
type MemoryStore struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{last: make(map[string]time.Time)}
}

func (s *MemoryStore) Reserve(_ context.Context, key string, now time.Time, interval time.Duration) (time.Duration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.last[key]; ok {
		if elapsed := now.Sub(last); elapsed < interval {
			return interval - elapsed, false, nil
		}
	}
	s.last[key] = now
	return 0, true, nil
}

func (s *MemoryStore) Rollback(_ context.Context, key string, reservedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Only the reservation being rolled back is released; a newer one
	// from another submission stays in place.
	if last, ok := s.last[key]; ok && last.Equal(reservedAt) {
		delete(s.last, key)
	}
	return nil
}
