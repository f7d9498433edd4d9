package fsutil

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	"github.com/reposync/reposync/internal/apperrors"
)

// FileLock is an advisory, shared lock file per real target. It never locks
// the temp file written during WriteAtomic — temps are unique-per-write and
// do not need to serialize with anything.
type FileLock struct {
	f *flock.Flock
}

// NewFileLock returns a lock bound to path (typically "<target>.lock").
func NewFileLock(path string) *FileLock {
	return &FileLock{f: flock.New(path)}
}

// Lock blocks until the lock is acquired or timeout elapses, retrying every
// 25ms; the retry delay is fixed and does not grow between attempts.
// Exhausting the timeout surfaces ErrLockTimeout.
func (l *FileLock) Lock(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ok, err := l.f.TryLockContext(ctx, 25*time.Millisecond)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s", apperrors.ErrLockTimeout, l.f.Path())
		}
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", apperrors.ErrLockTimeout, l.f.Path())
	}
	return nil
}

// Unlock releases the lock.
func (l *FileLock) Unlock() error {
	return l.f.Unlock()
}
