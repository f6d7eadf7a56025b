// Package rotator owns an append-only log file and rotates it into a bounded
// chain of numbered backups (path.1 newest ... path.N oldest).
package rotator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/lixenwraith/ultralog/filelock"
)

const fileMode os.FileMode = 0o644

// ErrClosed is returned by operations on a closed Rotator
var ErrClosed = errors.New("rotator: closed")

// Locker is the cross-process lock held for the duration of a rotation
type Locker interface {
	Lock() error
	Unlock() error
}

// Options configures a Rotator
type Options struct {
	Path        string
	MaxSize     int64 // Rotation threshold in bytes
	BackupCount int   // Backups kept; 0 discards the active file on rotation
	Enabled     bool  // Rotation on/off
	Truncate    bool  // Empty the active file on open
	Lock        Locker
}

// Rotator is the single owner of the active file handle and its byte counter
type Rotator struct {
	opts Options

	mu     sync.Mutex
	file   *os.File
	size   int64
	closed bool

	rotations atomic.Uint64
}

// New opens (creating if needed) the active file described by opts
func New(opts Options) (*Rotator, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("rotator: empty path")
	}
	if opts.BackupCount < 0 {
		return nil, fmt.Errorf("rotator: negative backup count %d", opts.BackupCount)
	}
	if opts.Lock == nil {
		opts.Lock = filelock.New(opts.Path, 0)
	}

	if dir := filepath.Dir(opts.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("rotator: create directory '%s': %w", dir, err)
		}
	}

	if opts.Truncate {
		if err := os.Truncate(opts.Path, 0); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("rotator: truncate '%s': %w", opts.Path, err)
		}
	}

	r := &Rotator{opts: opts}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

// Path returns the active file path
func (r *Rotator) Path() string {
	return r.opts.Path
}

// BackupPath returns the path of backup n (1 is newest)
func (r *Rotator) BackupPath(n int) string {
	return r.opts.Path + "." + strconv.Itoa(n)
}

// Append writes p to the active file and rotates once the size budget is reached
func (r *Rotator) Append(p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	if err != nil {
		return fmt.Errorf("rotator: write '%s': %w", r.opts.Path, err)
	}

	if r.opts.Enabled && r.opts.MaxSize > 0 && r.size >= r.opts.MaxSize {
		return r.rotateLocked()
	}
	return nil
}

// Size returns the number of bytes written to the active file
func (r *Rotator) Size() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Rotations returns the number of rotations performed by this Rotator
func (r *Rotator) Rotations() uint64 {
	return r.rotations.Load()
}

// Rotate forces a rotation regardless of the current size
func (r *Rotator) Rotate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	return r.rotateLocked()
}

// Sync commits the active file to stable storage
func (r *Rotator) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if err := r.file.Sync(); err != nil {
		return fmt.Errorf("rotator: sync '%s': %w", r.opts.Path, err)
	}
	return nil
}

// Close syncs and closes the active file. Safe to call more than once.
func (r *Rotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	syncErr := r.file.Sync()
	closeErr := r.file.Close()
	r.file = nil
	if err := errors.Join(syncErr, closeErr); err != nil {
		return fmt.Errorf("rotator: close '%s': %w", r.opts.Path, err)
	}
	return nil
}

// rotateLocked performs the rename chain while holding the cross-process lock.
// Caller holds r.mu.
func (r *Rotator) rotateLocked() error {
	if err := r.opts.Lock.Lock(); err != nil {
		return fmt.Errorf("rotator: acquire lock: %w", err)
	}
	defer func() {
		_ = r.opts.Lock.Unlock()
	}()

	// Another process sharing the path may have rotated already
	if moved, err := r.movedLocked(); err == nil && moved {
		_ = r.file.Close()
		return r.open()
	}

	if err := r.shiftBackups(); err != nil {
		return err
	}

	// A failed close is reported but does not stop the rotation
	var closeErr error
	if err := r.file.Close(); err != nil {
		closeErr = fmt.Errorf("rotator: close before rotation: %w", err)
	}

	var renameErr error
	if r.opts.BackupCount > 0 {
		renameErr = os.Rename(r.opts.Path, r.BackupPath(1))
	} else {
		renameErr = os.Remove(r.opts.Path)
	}
	if renameErr != nil && !errors.Is(renameErr, os.ErrNotExist) {
		// Keep writing to the old file rather than losing output
		renameErr = fmt.Errorf("rotator: detach '%s': %w", r.opts.Path, renameErr)
		if openErr := r.open(); openErr != nil {
			return errors.Join(closeErr, renameErr, openErr)
		}
		return errors.Join(closeErr, renameErr)
	}

	if err := r.open(); err != nil {
		return errors.Join(closeErr, err)
	}
	r.size = 0
	r.rotations.Add(1)
	return closeErr
}

// shiftBackups deletes the oldest backup and moves path.k to path.k+1
func (r *Rotator) shiftBackups() error {
	n := r.opts.BackupCount
	if n == 0 {
		return nil
	}

	if err := os.Remove(r.BackupPath(n)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("rotator: remove oldest backup: %w", err)
	}
	for k := n - 1; k >= 1; k-- {
		src := r.BackupPath(k)
		if err := os.Rename(src, r.BackupPath(k+1)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("rotator: shift backup %d: %w", k, err)
		}
	}
	return nil
}

// movedLocked reports whether the file at the active path is no longer the
// file this Rotator holds open
func (r *Rotator) movedLocked() (bool, error) {
	held, err := r.file.Stat()
	if err != nil {
		return false, err
	}
	onDisk, err := os.Stat(r.opts.Path)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return !os.SameFile(held, onDisk), nil
}

// open opens the active path and adopts its current size
func (r *Rotator) open() error {
	f, err := os.OpenFile(r.opts.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, fileMode)
	if err != nil {
		r.file = nil
		r.closed = true
		return fmt.Errorf("rotator: open '%s': %w", r.opts.Path, err)
	}
	r.file = f
	r.size = 0
	if fi, err := f.Stat(); err == nil {
		r.size = fi.Size()
	}
	return nil
}
