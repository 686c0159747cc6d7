package storage

import (
	"context"
	"errors"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Lock acquisition tuning.
const (
	LockInitialInterval = 5 * time.Millisecond
	LockMaxInterval     = 100 * time.Millisecond
	LockMaxElapsedTime  = 5 * time.Second
)

var errLockBusy = errors.New("lock busy")

// FileLock provides file-based locking for concurrent access, both between
// goroutines of this process and between processes sharing the store.
type FileLock struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// NewFileLock creates a new file lock.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// TryLock attempts to acquire the lock without blocking.
func (l *FileLock) TryLock() bool {
	if !l.mu.TryLock() {
		return false
	}

	f, err := os.OpenFile(l.path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		l.mu.Unlock()
		return false
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		l.mu.Unlock()
		return false
	}

	l.file = f
	return true
}

// LockContext acquires the lock, retrying TryLock with jittered exponential
// backoff until it succeeds, ctx is done, or LockMaxElapsedTime passes.
func (l *FileLock) LockContext(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = LockInitialInterval
	b.MaxInterval = LockMaxInterval
	b.MaxElapsedTime = LockMaxElapsedTime
	b.RandomizationFactor = 0.5
	b.Reset()

	return backoff.Retry(func() error {
		if l.TryLock() {
			return nil
		}
		return errLockBusy
	}, backoff.WithContext(b, ctx))
}

// Unlock releases the lock.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}

	syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	l.file.Close()
	os.Remove(l.path + ".lock")

	l.file = nil
	l.mu.Unlock()

	return nil
}
