package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"vouch/internal/identity"
	id "vouch/pkg/domain"
	"vouch/pkg/platform/sentinel"
	strs "vouch/pkg/platform/strings"
)

// PostgresStore reads the users table owned by the identity service.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, userID id.UserID) (*identity.User, error) {
	var (
		u            identity.User
		rawID        uuid.UUID
		lastActivity sql.NullTime
		hoods        pq.StringArray
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, phone_verified, endorsement_count, neighborhoods, created_at, last_activity_at
		FROM users WHERE id = $1`, uuid.UUID(userID),
	).Scan(&rawID, &u.PhoneVerified, &u.Endorsements, &hoods, &u.CreatedAt, &lastActivity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.ID = id.UserID(rawID)
	u.Neighborhoods = strs.DedupeAndTrim(hoods)
	if lastActivity.Valid {
		t := lastActivity.Time
		u.LastActivityAt = &t
	}
	return &u, nil
}
