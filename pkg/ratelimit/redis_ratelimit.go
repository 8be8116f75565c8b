package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript refills by elapsed milliseconds, then takes one token.
// The bucket lives in a hash so both fields expire together.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refill_per_ms = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])

	local state = redis.call('HMGET', key, 'tokens', 'ts')
	local tokens = tonumber(state[1])
	local ts = tonumber(state[2])
	if tokens == nil then
		tokens = capacity
		ts = now
	end

	local elapsed = math.max(0, now - ts)
	tokens = math.min(capacity, tokens + elapsed * refill_per_ms)

	local allowed = 0
	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	end

	redis.call('HSET', key, 'tokens', tokens, 'ts', now)
	redis.call('PEXPIRE', key, ttl)
	return allowed
`)

// RedisLimiter is a token bucket shared by every server instance.
type RedisLimiter struct {
	client     *redis.Client
	keyPrefix  string
	capacity   int
	refillRate float64
}

func NewRedisLimiter(client *redis.Client, keyPrefix string, capacity int, refillRate float64) *RedisLimiter {
	if keyPrefix == "" {
		keyPrefix = "ratelimit:"
	}
	return &RedisLimiter{
		client:     client,
		keyPrefix:  keyPrefix,
		capacity:   capacity,
		refillRate: refillRate,
	}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	// Keep the bucket around long enough to refill completely.
	ttl := int64(math.Ceil(float64(r.capacity)/r.refillRate*1000)) + 1000
	now := time.Now().UnixMilli()

	allowed, err := tokenBucketScript.Run(ctx, r.client, []string{r.keyPrefix + key},
		r.capacity, r.refillRate/1000, now, ttl,
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis rate limit failed: %w", err)
	}
	return allowed == 1, nil
}

// Reset forgets the bucket for key.
func (r *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}
	return nil
}
