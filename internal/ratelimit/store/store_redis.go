package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"vouch/internal/ratelimit/models"
)

const keyPrefix = "vouch:ratelimit:"

// RedisStore keeps each window as a sorted set of hit timestamps so every
// replica draws from the same budget.
type RedisStore struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewRedis(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// Allow trims the window, counts it and tentatively records the hit in one
// MULTI. A hit over the limit is removed again.
func (s *RedisStore) Allow(ctx context.Context, key string, limit models.Limit) (models.Result, error) {
	now := s.now()
	k := keyPrefix + key
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()
	cutoff := strconv.FormatInt(now.Add(-limit.Window).UnixNano(), 10)

	var card *redis.IntCmd
	var oldest *redis.ZSliceCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRemRangeByScore(ctx, k, "-inf", cutoff)
		p.ZAdd(ctx, k, redis.Z{Score: float64(now.UnixNano()), Member: member})
		card = p.ZCard(ctx, k)
		oldest = p.ZRangeWithScores(ctx, k, 0, 0)
		p.PExpire(ctx, k, limit.Window)
		return nil
	})
	if err != nil {
		return models.Result{}, fmt.Errorf("rate limit window %s: %w", key, err)
	}

	resetAt := now.Add(limit.Window)
	if zs := oldest.Val(); len(zs) > 0 {
		resetAt = time.Unix(0, int64(zs[0].Score)).Add(limit.Window)
	}

	count := int(card.Val())
	if count > limit.Requests {
		if err := s.client.ZRem(ctx, k, member).Err(); err != nil {
			return models.Result{}, fmt.Errorf("rate limit rollback %s: %w", key, err)
		}
		return models.Result{Limit: limit.Requests, ResetAt: resetAt}, nil
	}
	return models.Result{
		Allowed:   true,
		Limit:     limit.Requests,
		Remaining: limit.Requests - count,
		ResetAt:   resetAt,
	}, nil
}
