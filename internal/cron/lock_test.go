package cron

import (
	"context"
	"testing"
	"time"

	"github.com/nightshift/inventory-backend/pkg/lock"
)

func TestLockerLockIsExclusiveAcrossInstances(t *testing.T) {
	locker := lock.NewMemoryLocker(lock.RetryPolicy{Attempts: 1, Backoff: time.Millisecond})
	first, err := NewLockerLock(locker, "cron-test", time.Minute)
	if err != nil {
		t.Fatalf("build lock: %v", err)
	}
	second, err := NewLockerLock(locker, "cron-test", time.Minute)
	if err != nil {
		t.Fatalf("build lock: %v", err)
	}
	ctx := context.Background()

	ok, err := first.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("expected first acquire to succeed, ok=%v err=%v", ok, err)
	}
	ok, err = second.Acquire(ctx)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if ok {
		t.Fatal("expected second instance to be refused while the key is held")
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = second.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("expected acquire after release, ok=%v err=%v", ok, err)
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestLockerLockReleaseWithoutAcquireIsNoop(t *testing.T) {
	l, err := NewLockerLock(lock.NewMemoryLocker(lock.DefaultRetryPolicy()), "", 0)
	if err != nil {
		t.Fatalf("build lock: %v", err)
	}
	if err := l.Release(context.Background()); err != nil {
		t.Fatalf("release without acquire: %v", err)
	}
	if l.key != defaultLockKey || l.ttl != defaultLockTTL {
		t.Fatalf("expected defaults, got key=%q ttl=%v", l.key, l.ttl)
	}
}
