package oplock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryLocker_AcquireAndRelease(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()

	owner, err := l.Acquire(ctx, "u1")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if owner == "" {
		t.Fatal("empty owner token")
	}

	if _, err := l.Acquire(ctx, "u1"); !errors.Is(err, ErrLocked) {
		t.Errorf("second acquire: expected ErrLocked, got %v", err)
	}

	if err := l.Release(ctx, "u1", owner); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := l.Acquire(ctx, "u1"); err != nil {
		t.Errorf("acquire after release failed: %v", err)
	}
}

func TestMemoryLocker_UsersAreIndependent(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()

	if _, err := l.Acquire(ctx, "u1"); err != nil {
		t.Fatalf("Acquire u1 failed: %v", err)
	}
	if _, err := l.Acquire(ctx, "u2"); err != nil {
		t.Errorf("Acquire u2 failed: %v", err)
	}
}

func TestMemoryLocker_WrongOwnerCannotRelease(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()

	if _, err := l.Acquire(ctx, "u1"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := l.Release(ctx, "u1", "not-the-owner"); err != nil {
		t.Fatalf("Release with wrong owner errored: %v", err)
	}
	if _, err := l.Acquire(ctx, "u1"); !errors.Is(err, ErrLocked) {
		t.Errorf("lock was stolen by a wrong-owner release: %v", err)
	}
}

func TestMemoryLocker_ExpiredLockIsReacquirable(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()
	l.ttl = 10 * time.Millisecond

	first, err := l.Acquire(ctx, "u1")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	second, err := l.Acquire(ctx, "u1")
	if err != nil {
		t.Fatalf("acquire after expiry failed: %v", err)
	}
	if first == second {
		t.Error("expected a new owner token")
	}
}
