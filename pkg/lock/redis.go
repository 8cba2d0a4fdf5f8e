package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
)

// RedisLocker implements Locker on top of bsm/redislock.
type RedisLocker struct {
	client *redislock.Client
	policy RetryPolicy
}

// NewRedisLocker wraps a go-redis client. The policy controls retries while a key is held elsewhere.
func NewRedisLocker(rdb redislock.RedisClient, policy RetryPolicy) (*RedisLocker, error) {
	if rdb == nil {
		return nil, errors.New("redis client required for locker")
	}
	return &RedisLocker{client: redislock.New(rdb), policy: policy.normalized()}, nil
}

// Obtain acquires key, retrying with exponential backoff up to the configured attempts.
func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Handle, error) {
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	retries := l.policy.Attempts - 1
	strategy := redislock.NoRetry()
	if retries > 0 {
		strategy = redislock.LimitRetry(redislock.ExponentialBackoff(l.policy.Backoff, l.policy.MaxBackoff), retries)
	}
	held, err := l.client.Obtain(ctx, key, ttl, &redislock.Options{RetryStrategy: strategy})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrNotObtained
		}
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}
	return redisHandle{lock: held}, nil
}

type redisHandle struct {
	lock *redislock.Lock
}

func (h redisHandle) Release(ctx context.Context) error {
	if err := h.lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
