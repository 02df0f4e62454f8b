package oplock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryLock struct {
	owner     string
	expiresAt time.Time
}

// MemoryLocker implements Locker for a single process (DEV_MODE and tests).
type MemoryLocker struct {
	mu    sync.Mutex
	ttl   time.Duration
	locks map[string]memoryLock
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		ttl:   DefaultTTL,
		locks: make(map[string]memoryLock),
	}
}

func (l *MemoryLocker) Acquire(_ context.Context, userID string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if held, ok := l.locks[userID]; ok && time.Now().Before(held.expiresAt) {
		return "", ErrLocked
	}
	owner := uuid.NewString()
	l.locks[userID] = memoryLock{owner: owner, expiresAt: time.Now().Add(l.ttl)}
	return owner, nil
}

func (l *MemoryLocker) Release(_ context.Context, userID, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if held, ok := l.locks[userID]; ok && held.owner == owner {
		delete(l.locks, userID)
	}
	return nil
}
