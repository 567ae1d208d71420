package cache

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	badgemodels "vouch/internal/badge/models"
	badgeservice "vouch/internal/badge/service"
	badgestore "vouch/internal/badge/store"
	"vouch/internal/events"
	"vouch/internal/identity"
	identitystore "vouch/internal/identity/store"
	ninmodels "vouch/internal/nin/models"
	trustservice "vouch/internal/trust/service"
	"vouch/internal/trust/score"
	id "vouch/pkg/domain"
)

type fakeRedis struct {
	data    map[string]string
	ttls    map[string]time.Duration
	failing error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.failing != nil {
		return redis.NewStringResult("", f.failing)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	if f.failing != nil {
		return redis.NewStatusResult("", f.failing)
	}
	f.data[key] = string(value.([]byte))
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	if f.failing != nil {
		return redis.NewIntResult(0, f.failing)
	}
	n, _ := strconv.ParseInt(f.data[key], 10, 64)
	n++
	f.data[key] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	if f.failing != nil {
		return redis.NewBoolResult(false, f.failing)
	}
	f.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	c := &RedisCache{client: fake, ttl: time.Minute}
	userID := id.UserID(uuid.New())

	_, gen, ok, err := c.Get(ctx, userID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, gen)

	want := &score.Breakdown{Components: score.Components{Phone: 20}, Total: 20, MaxScore: 140, Percentage: 14}
	require.NoError(t, c.Set(ctx, userID, gen, want))
	assert.Equal(t, time.Minute, fake.ttls["vouch:trust:"+userID.String()+":0"])

	got, _, ok, err := c.Get(ctx, userID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, c.Invalidate(ctx, userID))
	_, gen, ok, _ = c.Get(ctx, userID)
	assert.False(t, ok)
	assert.Equal(t, int64(1), gen)
	assert.Equal(t, generationTTL, fake.ttls["vouch:trust:gen:"+userID.String()])

	t.Run("transport errors surface", func(t *testing.T) {
		fake.failing = errors.New("connection refused")
		_, _, _, err := c.Get(ctx, userID)
		assert.Error(t, err)
		fake.failing = nil
	})
}

func TestWriteFromBeforeInvalidationIsNeverServed(t *testing.T) {
	ctx := context.Background()
	c := &RedisCache{client: newFakeRedis(), ttl: time.Minute}
	userID := id.UserID(uuid.New())

	_, gen, _, err := c.Get(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, userID))
	require.NoError(t, c.Set(ctx, userID, gen, &score.Breakdown{Total: 99}))

	_, _, ok, err := c.Get(ctx, userID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvalidator(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	c := &RedisCache{client: fake, ttl: time.Minute}
	rec := &events.Recorder{}
	userID := id.UserID(uuid.New())
	require.NoError(t, c.Set(ctx, userID, 0, &score.Breakdown{Total: 1}))

	var seen []error
	inv := NewInvalidator(c, rec, func(err error) { seen = append(seen, err) })
	inv.Publish(ctx, events.Event{Type: events.TypeBadgeAwarded, UserID: userID})

	_, _, ok, _ := c.Get(ctx, userID)
	assert.False(t, ok)
	assert.Len(t, rec.Events(), 1)

	fake.failing = errors.New("down")
	inv.Publish(ctx, events.Event{Type: events.TypeVerificationCompleted, UserID: userID})
	assert.Len(t, seen, 1)
	assert.Len(t, rec.Events(), 2, "events still forwarded when the cache is down")
}

type verifiedNIN struct{}

func (verifiedNIN) Status(context.Context, id.UserID) (*ninmodels.StatusResult, error) {
	return &ninmodels.StatusResult{Status: ninmodels.StatusVerified}, nil
}

type noDocuments struct{}

func (noDocuments) VerifiedCount(context.Context, id.UserID) (int, error) { return 0, nil }

func TestRevokedBadgeLeavesCachedScore(t *testing.T) {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	adminID := id.UserID(uuid.New())
	users := identitystore.NewInMemoryStore()
	users.Put(identity.User{ID: userID, CreatedAt: time.Now().Add(-time.Hour)})

	c := &RedisCache{client: newFakeRedis(), ttl: time.Minute}
	badges := badgeservice.New(badgestore.NewInMemoryStore(),
		badgeservice.WithPublisher(NewInvalidator(c, events.Noop{}, nil)))
	trust := trustservice.New(users, verifiedNIN{}, noDocuments{}, badges, trustservice.WithCache(c))

	leader, err := badges.Award(ctx, badgemodels.AwardRequest{
		UserID: userID, Type: badgemodels.TypeCommunityLeader, Category: badgemodels.CategoryLeadership, AwardedBy: &adminID,
	})
	require.NoError(t, err)

	before, err := trust.Get(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 1.0, before.Components.Badges)

	_, err = badges.Revoke(ctx, leader.ID, adminID, "stepped down")
	require.NoError(t, err)

	after, err := trust.Get(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, after.Components.Badges)
}
