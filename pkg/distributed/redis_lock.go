package distributed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("lock not acquired")
	ErrLockNotHeld     = errors.New("lock not held")
)

// Locker hands out exclusive, expiring locks by key.
type Locker interface {
	Acquire(ctx context.Context, key string) (Lock, error)
}

// Lock is a held lock. Release is safe to call after expiry.
type Lock interface {
	Release(ctx context.Context) error
}

// releaseScript deletes the key only when it still holds our token.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// RedisLocker takes SET NX PX locks under a key prefix. Each lock gets a
// random token so an expired holder can never release a successor's lock.
type RedisLocker struct {
	client        *redis.Client
	prefix        string
	ttl           time.Duration
	maxRetries    int
	retryInterval time.Duration
}

type RedisLockerOption func(*RedisLocker)

// WithRetry makes Acquire try up to attempts times, waiting interval between tries.
func WithRetry(attempts int, interval time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		if attempts > 0 {
			l.maxRetries = attempts
		}
		l.retryInterval = interval
	}
}

func NewRedisLocker(client *redis.Client, prefix string, ttl time.Duration, opts ...RedisLockerOption) *RedisLocker {
	l := &RedisLocker{
		client:        client,
		prefix:        prefix,
		ttl:           ttl,
		maxRetries:    1,
		retryInterval: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (Lock, error) {
	fullKey := l.prefix + key
	token := uuid.NewString()

	for i := 0; i < l.maxRetries; i++ {
		ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", fullKey, err)
		}
		if ok {
			return &RedisLock{client: l.client, key: fullKey, token: token}, nil
		}

		if i < l.maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(l.retryInterval):
			}
		}
	}
	return nil, ErrLockNotAcquired
}

type RedisLock struct {
	client *redis.Client
	key    string
	token  string
}

func (l *RedisLock) Release(ctx context.Context) error {
	result, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// IsHeld reports whether the key still carries this lock's token.
func (l *RedisLock) IsHeld(ctx context.Context) (bool, error) {
	value, err := l.client.Get(ctx, l.key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return value == l.token, nil
}
