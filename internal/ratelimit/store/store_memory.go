package store

import (
	"context"
	"sync"
	"time"

	"vouch/internal/ratelimit/models"
)

// InMemoryStore is a per-process sliding window log. Limits are not shared
// between replicas; use RedisStore for that.
type InMemoryStore struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{windows: make(map[string][]time.Time), now: time.Now}
}

func (s *InMemoryStore) Allow(_ context.Context, key string, limit models.Limit) (models.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	hits := prune(s.windows[key], now.Add(-limit.Window))

	if len(hits) >= limit.Requests {
		s.windows[key] = hits
		return models.Result{Limit: limit.Requests, ResetAt: hits[0].Add(limit.Window)}, nil
	}

	hits = append(hits, now)
	s.windows[key] = hits
	return models.Result{
		Allowed:   true,
		Limit:     limit.Requests,
		Remaining: limit.Requests - len(hits),
		ResetAt:   hits[0].Add(limit.Window),
	}, nil
}

// prune drops hits at or before cutoff. hits is in arrival order.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == len(hits) {
		return hits[:0]
	}
	return hits[i:]
}
