package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vouch/internal/identity"
	id "vouch/pkg/domain"
	"vouch/pkg/platform/sentinel"
)

func TestInMemoryStore(t *testing.T) {
	s := NewInMemoryStore()
	userID := id.UserID(uuid.New())
	hoods := []string{"yaba"}
	s.Put(identity.User{ID: userID, PhoneVerified: true, Neighborhoods: hoods})
	hoods[0] = "mutated"

	u, err := s.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, u.PhoneVerified)
	assert.Equal(t, []string{"yaba"}, u.Neighborhoods)

	_, err = s.Get(context.Background(), id.UserID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestBlankNeighborhoodsAreDropped(t *testing.T) {
	s := NewInMemoryStore()
	userID := id.UserID(uuid.New())
	s.Put(identity.User{ID: userID, Neighborhoods: []string{" ", "", "Yaba", "Yaba "}})

	u, err := s.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Yaba"}, u.Neighborhoods)
}

func TestPostgresStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewPostgres(db)
	userID := id.UserID(uuid.New())
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(uuid.UUID(userID)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "phone_verified", "endorsement_count", "neighborhoods", "created_at", "last_activity_at"}).
			AddRow(userID.String(), true, int64(3), []byte(`{yaba,lekki}`), created, nil))

	u, err := s.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, userID, u.ID)
	assert.Equal(t, 3, u.Endorsements)
	assert.Equal(t, []string{"yaba", "lekki"}, u.Neighborhoods)
	assert.Nil(t, u.LastActivityAt)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).WillReturnRows(
		sqlmock.NewRows([]string{"id", "phone_verified", "endorsement_count", "neighborhoods", "created_at", "last_activity_at"}))
	_, err = s.Get(context.Background(), userID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
