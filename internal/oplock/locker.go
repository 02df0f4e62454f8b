// Package oplock serializes remote-storage operations per user. Two
// concurrent requests that both observe a missing folder or an expired token
// would otherwise race against the provider (duplicate folders, wasted
// refresh grants); holding the user's lock for the length of one operation
// removes that window.
package oplock

import (
	"context"
	"errors"
)

// ErrLocked is returned when another operation currently holds the user's lock.
var ErrLocked = errors.New("another storage operation is in progress for this user")

// Locker grants one in-flight operation per user. Acquire returns an owner
// token that must be passed back to Release; locks expire on their own if a
// holder crashes before releasing.
type Locker interface {
	Acquire(ctx context.Context, userID string) (owner string, err error)
	Release(ctx context.Context, userID, owner string) error
}
