package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrLockTimeout indicates the lock acquisition timed out
var ErrLockTimeout = errors.New("lock acquisition timed out")

// lockRetryDelay is the polling interval while waiting for the lock.
const lockRetryDelay = 50 * time.Millisecond

// FileLock provides an exclusive inter-process lock on a file.
// The lock is released by the operating system when the process exits.
type FileLock struct {
	lock *flock.Flock
}

// NewFileLock creates a new file lock at the given path.
// The parent directories are created on first use.
func NewFileLock(path string) *FileLock {
	return &FileLock{lock: flock.New(path)}
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired, false if another process holds it.
func (l *FileLock) TryLock() (bool, error) {
	if err := l.ensureDir(); err != nil {
		return false, err
	}
	locked, err := l.lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("flock failed: %w", err)
	}
	return locked, nil
}

// Lock acquires the lock, blocking until it's available or timeout expires.
func (l *FileLock) Lock(timeout time.Duration) error {
	return l.LockWithContext(context.Background(), timeout)
}

// LockWithContext acquires the lock, blocking until it's available,
// timeout expires, or the context is canceled.
func (l *FileLock) LockWithContext(ctx context.Context, timeout time.Duration) error {
	if err := l.ensureDir(); err != nil {
		return err
	}

	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	locked, err := l.lock.TryLockContext(lockCtx, lockRetryDelay)
	switch {
	case locked:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded) || err == nil:
		return ErrLockTimeout
	default:
		return fmt.Errorf("flock failed: %w", err)
	}
}

// Unlock releases the lock. Unlocking an unlocked FileLock is a no-op.
func (l *FileLock) Unlock() error {
	if !l.lock.Locked() {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("flock unlock failed: %w", err)
	}
	return nil
}

// IsLocked returns true if the lock is currently held by this instance.
func (l *FileLock) IsLocked() bool {
	return l.lock.Locked()
}

// Path returns the path to the lock file.
func (l *FileLock) Path() string {
	return l.lock.Path()
}

func (l *FileLock) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(l.lock.Path()), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	return nil
}
