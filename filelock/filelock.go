// Package filelock provides an advisory, cross-process exclusive lock backed
// by a sidecar lock file and flock(2).
package filelock

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Suffix is appended to the guarded path to form the sidecar lock file name
const Suffix = ".lock"

const (
	fileMode     os.FileMode = 0o600
	pollInterval             = 5 * time.Millisecond
)

var (
	// ErrTimeout is returned when the lock is held elsewhere past the timeout
	ErrTimeout = errors.New("filelock: timed out waiting for lock")
	// ErrNotLocked is returned by Unlock when the lock is not held
	ErrNotLocked = errors.New("filelock: not locked")
)

// Lock is an exclusive advisory lock on "<path>.lock".
// A Lock is safe for use by multiple goroutines; flock itself is per open file
// description, so in-process serialization is handled by an internal mutex.
type Lock struct {
	path    string
	timeout time.Duration

	mu   sync.Mutex
	file *os.File
}

// New returns a Lock guarding path. A non-positive timeout makes Lock a single
// non-blocking attempt.
func New(path string, timeout time.Duration) *Lock {
	return &Lock{
		path:    path + Suffix,
		timeout: timeout,
	}
}

// Path returns the sidecar lock file path
func (l *Lock) Path() string {
	return l.path
}

// Lock acquires the lock, polling until the timeout elapses.
// The in-process mutex is held until Unlock.
func (l *Lock) Lock() error {
	l.mu.Lock()

	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE, fileMode)
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("filelock: open %s: %w", l.path, err)
	}

	deadline := time.Now().Add(l.timeout)
	for {
		err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			l.file = f
			return nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			_ = f.Close()
			l.mu.Unlock()
			return fmt.Errorf("filelock: flock %s: %w", l.path, err)
		}
		if !time.Now().Before(deadline) {
			_ = f.Close()
			l.mu.Unlock()
			return fmt.Errorf("%w: %s after %v", ErrTimeout, l.path, l.timeout)
		}
		time.Sleep(pollInterval)
	}
}

// Unlock releases the lock and closes the sidecar handle
func (l *Lock) Unlock() error {
	if l.file == nil {
		return ErrNotLocked
	}
	f := l.file
	l.file = nil
	defer l.mu.Unlock()

	err := unix.Flock(int(f.Fd()), unix.LOCK_UN)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("filelock: unlock %s: %w", l.path, err)
	}
	return nil
}

// TryLocked reports whether the lock is currently held by another open file
// description. It does not block.
func TryLocked(path string) bool {
	probe := New(path, 0)
	if err := probe.Lock(); err != nil {
		return true
	}
	_ = probe.Unlock()
	return false
}
