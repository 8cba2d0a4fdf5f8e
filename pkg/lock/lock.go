package lock

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrNotObtained is returned when every acquisition attempt found the key held.
var ErrNotObtained = errors.New("lock not obtained")

// Locker grants exclusive ownership of a key for a bounded TTL.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Handle, error)
}

// Handle releases a previously obtained key.
type Handle interface {
	Release(ctx context.Context) error
}

// RetryPolicy bounds how long Obtain keeps retrying a held key.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
	// MaxBackoff caps the exponential growth of Backoff. Zero means 8x Backoff.
	MaxBackoff time.Duration
}

// DefaultRetryPolicy makes 3 attempts starting at a 50ms backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Backoff: 50 * time.Millisecond}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if p.Backoff <= 0 {
		p.Backoff = 10 * time.Millisecond
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 8 * p.Backoff
	}
	return p
}

// backoff waits between the policy's attempts; the first attempt is not a retry.
func (p RetryPolicy) backoff() retry.Backoff {
	b := retry.NewExponential(p.Backoff)
	b = retry.WithCappedDuration(p.MaxBackoff, b)
	return retry.WithMaxRetries(uint64(p.Attempts-1), b)
}

// WithLock runs fn while holding key, releasing it afterwards even when fn fails.
func WithLock(ctx context.Context, locker Locker, key string, ttl time.Duration, fn func(ctx context.Context) error) (err error) {
	handle, err := locker.Obtain(ctx, key, ttl)
	if err != nil {
		return err
	}
	defer func() {
		if relErr := handle.Release(ctx); relErr != nil && err == nil {
			err = relErr
		}
	}()
	return fn(ctx)
}
