package store

import (
	"context"
	"sync"

	"vouch/internal/identity"
	id "vouch/pkg/domain"
	"vouch/pkg/platform/sentinel"
	strs "vouch/pkg/platform/strings"
)

// InMemoryStore backs local runs and tests. Put exists for seeding only.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[id.UserID]identity.User
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{users: make(map[id.UserID]identity.User)}
}

func (s *InMemoryStore) Put(u identity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Neighborhoods = strs.DedupeAndTrim(u.Neighborhoods)
	s.users[u.ID] = u
}

func (s *InMemoryStore) Get(_ context.Context, userID id.UserID) (*identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	u.Neighborhoods = strs.DedupeAndTrim(u.Neighborhoods)
	return &u, nil
}
