package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

// MemoryLocker is a process-local Locker used by tests and single replica setups.
type MemoryLocker struct {
	mu     sync.Mutex
	held   map[string]time.Time
	policy RetryPolicy
	now    func() time.Time
}

// NewMemoryLocker builds an in-process locker with the provided retry policy.
func NewMemoryLocker(policy RetryPolicy) *MemoryLocker {
	return &MemoryLocker{
		held:   make(map[string]time.Time),
		policy: policy.normalized(),
		now:    time.Now,
	}
}

// Obtain acquires key or retries with capped exponential backoff until attempts run out.
func (l *MemoryLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Handle, error) {
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	err := retry.Do(ctx, l.policy.backoff(), func(context.Context) error {
		if l.tryAcquire(key, ttl) {
			return nil
		}
		return retry.RetryableError(ErrNotObtained)
	})
	if err != nil {
		return nil, err
	}
	return &memoryHandle{locker: l, key: key}, nil
}

func (l *MemoryLocker) tryAcquire(key string, ttl time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if expires, ok := l.held[key]; ok && now.Before(expires) {
		return false
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	l.held[key] = now.Add(ttl)
	return true
}

func (l *MemoryLocker) release(key string) {
	l.mu.Lock()
	delete(l.held, key)
	l.mu.Unlock()
}

type memoryHandle struct {
	locker *MemoryLocker
	key    string
	once   sync.Once
}

func (h *memoryHandle) Release(context.Context) error {
	h.once.Do(func() { h.locker.release(h.key) })
	return nil
}
