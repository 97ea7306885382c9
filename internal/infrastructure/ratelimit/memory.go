package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local rolling-window counter. Each key keeps
// the timestamps of its requests inside the current window; a background
// goroutine evicts keys that have gone quiet.
type MemoryStore struct {
	mu      sync.Mutex
	hits    map[string][]time.Time
	done    chan struct{}
	closeMu sync.Once
	now     func() time.Time
}

// NewMemoryStore creates an in-memory store and starts its cleanup loop.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		hits: make(map[string][]time.Time),
		done: make(chan struct{}),
		now:  time.Now,
	}
	go s.cleanupLoop(5 * time.Minute)
	return s
}

// Allow implements Store.
func (s *MemoryStore) Allow(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	now := s.now()
	cutoff := now.Add(-window)

	s.mu.Lock()
	defer s.mu.Unlock()

	hits := s.hits[key]
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= limit {
		s.hits[key] = kept
		retryAfter := window - now.Sub(kept[0])
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return Result{Allowed: false, Remaining: 0, RetryAfter: retryAfter}, nil
	}

	kept = append(kept, now)
	s.hits[key] = kept
	return Result{Allowed: true, Remaining: limit - len(kept)}, nil
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.closeMu.Do(func() { close(s.done) })
	return nil
}

func (s *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.evictStale(interval)
		case <-s.done:
			return
		}
	}
}

// evictStale drops keys whose newest hit is older than maxAge.
func (s *MemoryStore) evictStale(maxAge time.Duration) {
	cutoff := s.now().Add(-maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, hits := range s.hits {
		if len(hits) == 0 || hits[len(hits)-1].Before(cutoff) {
			delete(s.hits, key)
		}
	}
}
