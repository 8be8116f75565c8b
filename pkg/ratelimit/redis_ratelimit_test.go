package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedisLimiter needs a Redis server on localhost:6379 and skips otherwise.
func setupRedisLimiter(t *testing.T, capacity int, refill float64) *RedisLimiter {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis server not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return NewRedisLimiter(client, "test:ratelimit:", capacity, refill)
}

func TestRedisLimiter_Allow(t *testing.T) {
	limiter := setupRedisLimiter(t, 3, 0.01)
	ctx := context.Background()
	key := "user:123"
	require.NoError(t, limiter.Reset(ctx, key))
	defer limiter.Reset(ctx, key)

	t.Run("requests within capacity are allowed", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			ok, err := limiter.Allow(ctx, key)
			require.NoError(t, err)
			assert.True(t, ok, "request %d should be allowed", i+1)
		}
	})

	t.Run("request over capacity is denied", func(t *testing.T) {
		ok, err := limiter.Allow(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("other keys are unaffected", func(t *testing.T) {
		defer limiter.Reset(ctx, "user:999")
		ok, err := limiter.Allow(ctx, "user:999")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestRedisLimiter_Refill(t *testing.T) {
	limiter := setupRedisLimiter(t, 1, 10)
	ctx := context.Background()
	key := "user:refill"
	require.NoError(t, limiter.Reset(ctx, key))
	defer limiter.Reset(ctx, key)

	ok, err := limiter.Allow(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	time.Sleep(200 * time.Millisecond)

	ok, err = limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}
