// Package cache keeps computed trust breakdowns in Redis for a short TTL.
// Entries are dropped when an event for the user is published.
//
// Each user has a generation counter. Breakdowns are stored under the
// generation observed before scoring began, and invalidation bumps the
// counter, so a score computed across an invalidation is written to a key no
// reader will look at again.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"vouch/internal/events"
	"vouch/internal/trust/score"
	id "vouch/pkg/domain"
)

const (
	keyPrefix = "vouch:trust:"
	// generations outlive any breakdown so a reset counter never revives one.
	generationTTL = 24 * time.Hour
)

type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

type RedisCache struct {
	client kv
	ttl    time.Duration
}

func NewRedis(client redis.Cmdable, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

func generationKey(userID id.UserID) string {
	return keyPrefix + "gen:" + userID.String()
}

func scoreKey(userID id.UserID, gen int64) string {
	return keyPrefix + userID.String() + ":" + strconv.FormatInt(gen, 10)
}

func (c *RedisCache) generation(ctx context.Context, userID id.UserID) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("trust cache generation: %w", err)
	}
	return gen, nil
}

// Get returns the cached breakdown and the generation it was read at. A miss
// is (nil, gen, false, nil); pass gen to Set once the score is computed.
func (c *RedisCache) Get(ctx context.Context, userID id.UserID) (*score.Breakdown, int64, bool, error) {
	gen, err := c.generation(ctx, userID)
	if err != nil {
		return nil, 0, false, err
	}
	raw, err := c.client.Get(ctx, scoreKey(userID, gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("trust cache get: %w", err)
	}
	var b score.Breakdown
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, gen, false, fmt.Errorf("trust cache decode: %w", err)
	}
	return &b, gen, true, nil
}

// Set stores b under gen. If the user was invalidated since gen was read the
// entry is unreachable and simply expires.
func (c *RedisCache) Set(ctx context.Context, userID id.UserID, gen int64, b *score.Breakdown) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("trust cache encode: %w", err)
	}
	if err := c.client.Set(ctx, scoreKey(userID, gen), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("trust cache set: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, userID id.UserID) error {
	key := generationKey(userID)
	if err := c.client.Incr(ctx, key).Err(); err != nil {
		return fmt.Errorf("trust cache invalidate: %w", err)
	}
	if err := c.client.Expire(ctx, key, max(generationTTL, 2*c.ttl)).Err(); err != nil {
		return fmt.Errorf("trust cache invalidate: %w", err)
	}
	return nil
}

// Invalidator drops the user's cached score for every event it sees, then
// hands the event on.
type Invalidator struct {
	cache interface {
		Invalidate(ctx context.Context, userID id.UserID) error
	}
	next    events.Publisher
	onError func(error)
}

func NewInvalidator(c *RedisCache, next events.Publisher, onError func(error)) *Invalidator {
	if onError == nil {
		onError = func(error) {}
	}
	return &Invalidator{cache: c, next: next, onError: onError}
}

func (i *Invalidator) Publish(ctx context.Context, e events.Event) {
	if !e.UserID.IsNil() {
		if err := i.cache.Invalidate(ctx, e.UserID); err != nil {
			i.onError(err)
		}
	}
	i.next.Publish(ctx, e)
}
