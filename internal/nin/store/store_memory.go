// Package store persists NIN verification records.
package store

import (
	"context"
	"sync"

	"vouch/internal/nin/models"
	id "vouch/pkg/domain"
	"vouch/pkg/platform/sentinel"
)

// InMemoryStore holds one mutex across every check-and-write so concurrent
// attempts for the same user or NIN serialise.
type InMemoryStore struct {
	mu      sync.Mutex
	records map[id.UserID]*models.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.UserID]*models.Record)}
}

func (s *InMemoryStore) FindByUser(_ context.Context, userID id.UserID) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(rec), nil
}

func (s *InMemoryStore) BeginAttempt(_ context.Context, a models.Attempt) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hashVerifiedByOther(a.NINHash, a.UserID) {
		return nil, models.ErrNINInUse
	}
	rec, ok := s.records[a.UserID]
	if ok {
		switch rec.Status {
		case models.StatusVerified:
			return nil, models.ErrAlreadyVerified
		case models.StatusPending:
			if !rec.LeaseExpired(a.StartedAt, a.LeaseTTL) {
				return nil, models.ErrAttemptInProgress
			}
		}
	} else {
		rec = &models.Record{UserID: a.UserID, CreatedAt: a.StartedAt}
		s.records[a.UserID] = rec
	}

	started := a.StartedAt
	rec.EncryptedNIN = append([]byte(nil), a.EncryptedNIN...)
	rec.NINHash = a.NINHash
	rec.FirstName = a.FirstName
	rec.MiddleName = a.MiddleName
	rec.LastName = a.LastName
	rec.DateOfBirth = a.DateOfBirth
	rec.Gender = a.Gender
	rec.StateOfOrigin = a.StateOfOrigin
	rec.Status = models.StatusPending
	rec.Method = models.MethodAPI
	rec.ProviderReference = ""
	rec.FailureReason = ""
	rec.RawFailureReason = ""
	rec.AttemptToken = a.Token
	rec.AttemptStartedAt = &started
	rec.Attempts++
	rec.UpdatedAt = a.StartedAt
	return clone(rec), nil
}

func (s *InMemoryStore) Complete(_ context.Context, o models.Outcome) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[o.UserID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if rec.Status != models.StatusPending || rec.AttemptToken != o.Token {
		return nil, models.ErrAttemptSuperseded
	}
	if o.Status == models.StatusVerified && s.hashVerifiedByOther(rec.NINHash, o.UserID) {
		return nil, models.ErrNINInUse
	}

	rec.Status = o.Status
	rec.Method = o.Method
	rec.ProviderReference = o.ProviderReference
	rec.FailureReason = o.FailureReason
	rec.RawFailureReason = o.RawFailureReason
	rec.UpdatedAt = o.CompletedAt
	if o.Status == models.StatusVerified {
		at := o.CompletedAt
		rec.VerifiedAt = &at
	}
	return clone(rec), nil
}

func (s *InMemoryStore) hashVerifiedByOther(hash string, userID id.UserID) bool {
	for uid, r := range s.records {
		if uid != userID && r.Status == models.StatusVerified && r.NINHash == hash {
			return true
		}
	}
	return false
}

func clone(r *models.Record) *models.Record {
	c := *r
	c.EncryptedNIN = append([]byte(nil), r.EncryptedNIN...)
	return &c
}
