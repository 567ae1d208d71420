package store

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vouch/internal/badge/models"
	id "vouch/pkg/domain"
	"vouch/pkg/platform/sentinel"
)

func newBadge(userID id.UserID, t models.Type, at time.Time) *models.Badge {
	return &models.Badge{
		ID:        id.NewBadgeID(),
		UserID:    userID,
		Type:      t,
		Category:  models.CategoryVerification,
		AwardedAt: at,
		Active:    true,
	}
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	userID := id.UserID(uuid.New())
	now := time.Now()

	first := newBadge(userID, models.TypeNINVerified, now)
	require.NoError(t, s.CreateIfNoActive(ctx, first))
	assert.ErrorIs(t, s.CreateIfNoActive(ctx, newBadge(userID, models.TypeNINVerified, now)), sentinel.ErrConflict)

	n, _ := s.CountActive(ctx, userID)
	assert.Equal(t, 1, n)

	admin := id.UserID(uuid.New())
	revoked, err := s.Revoke(ctx, first.ID, models.Revocation{RevokedBy: admin, Reason: "fraud", RevokedAt: now})
	require.NoError(t, err)
	assert.False(t, revoked.Active)
	assert.Equal(t, "fraud", revoked.RevocationReason)

	t.Run("second revoke is an invalid state", func(t *testing.T) {
		_, err := s.Revoke(ctx, first.ID, models.Revocation{RevokedBy: admin, Reason: "again", RevokedAt: now})
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	})

	t.Run("re-award after revoke creates a new row", func(t *testing.T) {
		require.NoError(t, s.CreateIfNoActive(ctx, newBadge(userID, models.TypeNINVerified, now.Add(time.Second))))
		list, err := s.ListByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.True(t, list[0].Active, "newest first")
	})

	t.Run("unknown badge is not found", func(t *testing.T) {
		_, err := s.Revoke(ctx, id.NewBadgeID(), models.Revocation{RevokedBy: admin, Reason: "x", RevokedAt: now})
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestInMemoryStore_ConcurrentAwardCreatesOneActive(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	userID := id.UserID(uuid.New())

	var wg sync.WaitGroup
	var mu sync.Mutex
	conflicts := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.CreateIfNoActive(ctx, newBadge(userID, models.TypePhoneVerified, time.Now())); err != nil {
				mu.Lock()
				conflicts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	n, _ := s.CountActive(ctx, userID)
	assert.Equal(t, 1, n)
	assert.Equal(t, 19, conflicts)
}

var badgeColumnNames = []string{"id", "user_id", "badge_type", "category", "awarded_by", "awarded_at", "is_active",
	"revoked_at", "revoked_by", "revocation_reason", "metadata"}

func TestPostgresStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewPostgres(db)
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	admin := id.UserID(uuid.New())
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("unique index violation is a conflict", func(t *testing.T) {
		b := newBadge(userID, models.TypeNINVerified, now)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO badges")).
			WithArgs(uuid.UUID(b.ID), uuid.UUID(userID), "nin_verified", "verification", nil, now, []byte("{}")).
			WillReturnError(&pq.Error{Code: "23505", Constraint: oneActivePerTypeIndex})
		assert.ErrorIs(t, s.CreateIfNoActive(ctx, b), sentinel.ErrConflict)
	})

	t.Run("revoke of an inactive badge is an invalid state", func(t *testing.T) {
		badgeID := id.NewBadgeID()
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE badges")).
			WithArgs(uuid.UUID(badgeID), now, uuid.UUID(admin), "spam").
			WillReturnRows(sqlmock.NewRows(badgeColumnNames))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM badges WHERE id = $1)")).
			WithArgs(uuid.UUID(badgeID)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		_, err := s.Revoke(ctx, badgeID, models.Revocation{RevokedBy: admin, Reason: "spam", RevokedAt: now})
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	})

	t.Run("revoke of a missing badge is not found", func(t *testing.T) {
		badgeID := id.NewBadgeID()
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE badges")).
			WillReturnRows(sqlmock.NewRows(badgeColumnNames))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		_, err := s.Revoke(ctx, badgeID, models.Revocation{RevokedBy: admin, Reason: "spam", RevokedAt: now})
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("list decodes metadata and awarder", func(t *testing.T) {
		badgeID := id.NewBadgeID()
		mock.ExpectQuery(regexp.QuoteMeta("FROM badges WHERE user_id = $1")).
			WithArgs(uuid.UUID(userID)).
			WillReturnRows(sqlmock.NewRows(badgeColumnNames).AddRow(
				badgeID.String(), userID.String(), "community_leader", "leadership", admin.String(), now, true,
				nil, nil, "", []byte(`{"neighborhood":"lekki"}`)))
		list, err := s.ListByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, admin, *list[0].AwardedBy)
		assert.Equal(t, "lekki", list[0].Metadata["neighborhood"])
		assert.Nil(t, list[0].RevokedAt)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
