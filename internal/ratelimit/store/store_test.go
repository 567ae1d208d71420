package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vouch/internal/ratelimit/models"
)

func TestInMemorySlidingWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewInMemoryStore()
	s.now = func() time.Time { return now }
	limit := models.Limit{Requests: 3, Window: time.Minute}

	for i := range 3 {
		res, err := s.Allow(ctx, "write:user:a", limit)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
		now = now.Add(10 * time.Second)
	}

	res, err := s.Allow(ctx, "write:user:a", limit)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Date(2026, 5, 1, 12, 1, 0, 0, time.UTC), res.ResetAt)
	assert.Equal(t, 30, res.RetryAfter(now))

	other, err := s.Allow(ctx, "write:user:b", limit)
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys do not share a window")

	// The first hit ages out exactly one window after it was recorded.
	now = time.Date(2026, 5, 1, 12, 1, 0, 0, time.UTC)
	res, err = s.Allow(ctx, "write:user:a", limit)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
}

func TestRetryAfterFloor(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 1, models.Result{ResetAt: now.Add(-time.Second)}.RetryAfter(now))
}
