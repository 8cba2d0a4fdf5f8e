package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nightshift/inventory-backend/pkg/lock"
)

const (
	defaultLockKey = "nightshift:cron:lock"
	defaultLockTTL = 2 * time.Hour
)

// Lock coordinates exclusive cron runs across replicas.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// LockerLock holds one cycle-wide key on a pkg/lock Locker (redis in production).
type LockerLock struct {
	locker lock.Locker
	key    string
	ttl    time.Duration

	mu     sync.Mutex
	handle lock.Handle
}

// NewLockerLock builds a cron lock. Empty key and zero ttl fall back to defaults.
func NewLockerLock(locker lock.Locker, key string, ttl time.Duration) (*LockerLock, error) {
	if locker == nil {
		return nil, errors.New("locker required for cron lock")
	}
	if key == "" {
		key = defaultLockKey
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &LockerLock{locker: locker, key: key, ttl: ttl}, nil
}

// Acquire reports false without error when another instance owns the key.
func (l *LockerLock) Acquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handle != nil {
		return false, nil
	}
	handle, err := l.locker.Obtain(ctx, l.key, l.ttl)
	if err != nil {
		if errors.Is(err, lock.ErrNotObtained) {
			return false, nil
		}
		return false, fmt.Errorf("obtain cron lock: %w", err)
	}
	l.handle = handle
	return true, nil
}

// Release drops the key if this instance holds it.
func (l *LockerLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handle == nil {
		return nil
	}
	err := l.handle.Release(ctx)
	l.handle = nil
	return err
}
