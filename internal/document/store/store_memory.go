// Package store persists identity documents.
package store

import (
	"context"
	"sort"
	"sync"

	"vouch/internal/document/models"
	id "vouch/pkg/domain"
	"vouch/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[id.DocumentID]*models.Document
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{docs: make(map[id.DocumentID]*models.Document)}
}

func (s *InMemoryStore) Create(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[doc.ID]; exists {
		return sentinel.ErrConflict
	}
	c := *doc
	s.docs[doc.ID] = &c
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, docID id.DocumentID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[docID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *d
	return &c, nil
}

// ListByUser returns the user's documents, newest first.
func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Document, 0)
	for _, d := range s.docs {
		if d.UserID == userID {
			c := *d
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

func (s *InMemoryStore) HasVerified(_ context.Context, userID id.UserID, docType models.Type) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasVerifiedLocked(userID, docType, id.DocumentID{}), nil
}

// SetVerification applies review. Approving fails with ErrConflict while
// another document of the same type is verified for the user.
func (s *InMemoryStore) SetVerification(_ context.Context, docID id.DocumentID, review models.Review) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[docID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if review.IsVerified && s.hasVerifiedLocked(d.UserID, d.Type, d.ID) {
		return nil, sentinel.ErrConflict
	}
	applyReview(d, review)
	c := *d
	return &c, nil
}

func (s *InMemoryStore) Delete(_ context.Context, docID id.DocumentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[docID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.docs, docID)
	return nil
}

func (s *InMemoryStore) hasVerifiedLocked(userID id.UserID, docType models.Type, except id.DocumentID) bool {
	for _, d := range s.docs {
		if d.UserID == userID && d.Type == docType && d.IsVerified && d.ID != except {
			return true
		}
	}
	return false
}

func applyReview(d *models.Document, r models.Review) {
	at := r.ReviewedAt
	by := r.ReviewerID
	d.IsVerified = r.IsVerified
	d.VerifiedAt = &at
	d.VerifiedBy = &by
	if r.IsVerified {
		d.RejectionReason = ""
	} else {
		d.RejectionReason = r.RejectionReason
	}
}
