package memory

import (
	"context"
	"sort"
	"sync"

	"vouch/internal/audit"
)

// InMemoryStore is an append-only audit store for development and tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.PreviousValue = append([]byte(nil), entry.PreviousValue...)
	entry.NewValue = append([]byte(nil), entry.NewValue...)
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, q audit.Query) ([]audit.Entry, error) {
	s.mu.RLock()
	matched := make([]audit.Entry, 0)
	for _, e := range s.entries {
		if q.Criteria.Matches(e) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var less, equal bool
		switch q.SortBy {
		case audit.SortVerificationType:
			less, equal = a.VerificationType < b.VerificationType, a.VerificationType == b.VerificationType
		case audit.SortAction:
			less, equal = a.Action < b.Action, a.Action == b.Action
		default:
			less, equal = a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
		}
		if equal {
			return false
		}
		if q.Desc {
			return !less
		}
		return less
	})

	if q.Offset >= len(matched) {
		return []audit.Entry{}, nil
	}
	end := len(matched)
	if q.Limit > 0 && q.Offset+q.Limit < end {
		end = q.Offset + q.Limit
	}
	return matched[q.Offset:end], nil
}

func (s *InMemoryStore) Count(_ context.Context, c audit.Criteria) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entries {
		if c.Matches(e) {
			n++
		}
	}
	return n, nil
}
