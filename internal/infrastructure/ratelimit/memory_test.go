package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newTestStore(now *time.Time) *MemoryStore {
	s := &MemoryStore{
		hits: make(map[string][]time.Time),
		done: make(chan struct{}),
		now:  func() time.Time { return *now },
	}
	return s
}

func TestMemoryStore_RejectsBeyondLimit(t *testing.T) {
	now := time.Now()
	s := newTestStore(&now)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		res, err := s.Allow(ctx, "203.0.113.9", 100, time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("request %d rejected below limit", i+1)
		}
	}

	res, err := s.Allow(ctx, "203.0.113.9", 100, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Allowed {
		t.Fatal("101st request within the window should be rejected")
	}
	if res.RetryAfter <= 0 || res.RetryAfter > time.Minute {
		t.Fatalf("retry-after out of range: %v", res.RetryAfter)
	}
}

func TestMemoryStore_WindowRollover(t *testing.T) {
	now := time.Now()
	s := newTestStore(&now)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		s.Allow(ctx, "client", 100, time.Minute)
	}
	if res, _ := s.Allow(ctx, "client", 100, time.Minute); res.Allowed {
		t.Fatal("expected rejection at limit")
	}

	now = now.Add(61 * time.Second)
	res, err := s.Allow(ctx, "client", 100, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Allowed {
		t.Fatal("request after window rollover should be admitted")
	}
}

func TestMemoryStore_KeysAreIndependent(t *testing.T) {
	now := time.Now()
	s := newTestStore(&now)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s.Allow(ctx, "a", 5, time.Minute)
	}
	if res, _ := s.Allow(ctx, "a", 5, time.Minute); res.Allowed {
		t.Fatal("key a should be exhausted")
	}
	if res, _ := s.Allow(ctx, "b", 5, time.Minute); !res.Allowed {
		t.Fatal("key b should be unaffected by key a")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.Allow(ctx, "shared", 100, time.Minute)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if res.Allowed {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 100 {
		t.Fatalf("admitted %d requests, want exactly 100", admitted)
	}
}

func TestMemoryStore_EvictStale(t *testing.T) {
	now := time.Now()
	s := newTestStore(&now)
	ctx := context.Background()

	s.Allow(ctx, "old", 10, time.Minute)
	now = now.Add(10 * time.Minute)
	s.Allow(ctx, "fresh", 10, time.Minute)

	s.evictStale(5 * time.Minute)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hits["old"]; ok {
		t.Fatal("stale key should have been evicted")
	}
	if _, ok := s.hits["fresh"]; !ok {
		t.Fatal("fresh key should survive eviction")
	}
}
