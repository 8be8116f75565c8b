package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestTokenBucket_Allow(t *testing.T) {
	clock := newClock()
	bucket := newTokenBucket(5, 1, clock.Now)

	for i := 0; i < 5; i++ {
		assert.True(t, bucket.Allow(), "request %d should be allowed", i+1)
	}
	assert.False(t, bucket.Allow(), "6th request should be denied")

	clock.Advance(time.Second)
	assert.True(t, bucket.Allow())
	assert.False(t, bucket.Allow())
}

func TestTokenBucket_FractionalRefill(t *testing.T) {
	clock := newClock()
	bucket := newTokenBucket(1, 0.5, clock.Now)

	require.True(t, bucket.Allow())

	clock.Advance(time.Second)
	assert.False(t, bucket.Allow(), "half a token is not enough")

	clock.Advance(time.Second)
	assert.True(t, bucket.Allow())
}

func TestTokenBucket_NeverExceedsCapacity(t *testing.T) {
	clock := newClock()
	bucket := newTokenBucket(2, 10, clock.Now)

	clock.Advance(time.Hour)
	assert.True(t, bucket.Allow())
	assert.True(t, bucket.Allow())
	assert.False(t, bucket.Allow())
}

func TestLocalLimiter_KeysAreIndependent(t *testing.T) {
	clock := newClock()
	limiter := NewLocalLimiter(2, 1)
	limiter.now = clock.Now
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "user:1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := limiter.Allow(ctx, "user:1")
	assert.False(t, ok)

	ok, _ = limiter.Allow(ctx, "user:2")
	assert.True(t, ok, "another user has its own bucket")
}

func TestLocalLimiter_SweepDropsRefilledBuckets(t *testing.T) {
	clock := newClock()
	limiter := NewLocalLimiter(3, 1)
	limiter.now = clock.Now
	ctx := context.Background()

	limiter.Allow(ctx, "user:1")
	limiter.Allow(ctx, "user:2")
	limiter.Allow(ctx, "user:2")
	limiter.Allow(ctx, "user:2")

	clock.Advance(time.Second)
	assert.Equal(t, 1, limiter.Sweep(), "user:1 has refilled, user:2 has not")

	clock.Advance(5 * time.Second)
	assert.Zero(t, limiter.Sweep())
}

func TestLocalLimiter_Concurrent(t *testing.T) {
	limiter := NewLocalLimiter(50, 0.001)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := limiter.Allow(ctx, "shared"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}
