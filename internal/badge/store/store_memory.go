package store

import (
	"context"
	"sort"
	"sync"

	"vouch/internal/badge/models"
	id "vouch/pkg/domain"
	"vouch/pkg/platform/sentinel"
)

// InMemoryStore holds badges in process. The mutex spans each
// check-and-write so CreateIfNoActive and Revoke are atomic.
type InMemoryStore struct {
	mu     sync.Mutex
	badges map[id.BadgeID]*models.Badge
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{badges: make(map[id.BadgeID]*models.Badge)}
}

func (s *InMemoryStore) CreateIfNoActive(_ context.Context, b *models.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.badges {
		if existing.UserID == b.UserID && existing.Type == b.Type && existing.Active {
			return sentinel.ErrConflict
		}
	}
	s.badges[b.ID] = clone(b)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, badgeID id.BadgeID) (*models.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.badges[badgeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(b), nil
}

// ListByUser returns every badge the user holds or held, newest award first.
func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Badge, 0)
	for _, b := range s.badges {
		if b.UserID == userID {
			out = append(out, clone(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AwardedAt.After(out[j].AwardedAt)
	})
	return out, nil
}

func (s *InMemoryStore) CountActive(_ context.Context, userID id.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.badges {
		if b.UserID == userID && b.Active {
			n++
		}
	}
	return n, nil
}

// Revoke deactivates an active badge. An inactive badge yields ErrInvalidState.
func (s *InMemoryStore) Revoke(_ context.Context, badgeID id.BadgeID, r models.Revocation) (*models.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.badges[badgeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !b.Active {
		return nil, sentinel.ErrInvalidState
	}
	at := r.RevokedAt
	by := r.RevokedBy
	b.Active = false
	b.RevokedAt = &at
	b.RevokedBy = &by
	b.RevocationReason = r.Reason
	return clone(b), nil
}

func clone(b *models.Badge) *models.Badge {
	c := *b
	if b.Metadata != nil {
		c.Metadata = make(map[string]string, len(b.Metadata))
		for k, v := range b.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}
