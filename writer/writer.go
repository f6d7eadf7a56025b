// Package writer accumulates formatted lines in memory and hands them to an
// Appender in whole-line chunks.
package writer

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Write and Flush after Close
var ErrClosed = errors.New("writer: closed")

// Appender is the destination of flushed bytes, typically a *rotator.Rotator
type Appender interface {
	Append(p []byte) error
	Sync() error
	Close() error
}

// Writer is the local write path. Each call is atomic with respect to the others.
type Writer interface {
	Write(line []byte) error
	Flush() error
	Close() error
}

// New selects the write strategy: Immediate when forceSync is set, Buffered otherwise
func New(dst Appender, bufferSize int, forceSync bool) Writer {
	if forceSync || bufferSize <= 0 {
		return NewImmediate(dst)
	}
	return NewBuffered(dst, bufferSize)
}

// Buffered flushes once the buffer reaches its byte threshold
type Buffered struct {
	mu        sync.Mutex
	dst       Appender
	buf       []byte
	threshold int
	closed    bool
}

// NewBuffered returns a threshold-flush writer
func NewBuffered(dst Appender, threshold int) *Buffered {
	return &Buffered{
		dst:       dst,
		buf:       make([]byte, 0, threshold),
		threshold: threshold,
	}
}

// Write appends a complete line and flushes when the threshold is reached
func (b *Buffered) Write(line []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	b.buf = append(b.buf, line...)
	if len(b.buf) >= b.threshold {
		return b.flushLocked()
	}
	return nil
}

// Flush hands the buffered lines to the appender
func (b *Buffered) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	return b.flushLocked()
}

// Buffered returns the number of bytes not yet flushed
func (b *Buffered) Buffered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// Close flushes and closes the appender. Subsequent calls return nil.
func (b *Buffered) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	flushErr := b.flushLocked()
	b.buf = nil
	return errors.Join(flushErr, b.dst.Close())
}

func (b *Buffered) flushLocked() error {
	if len(b.buf) == 0 {
		return nil
	}
	err := b.dst.Append(b.buf)
	// Cleared on failure too: a failing disk must not grow memory
	b.buf = b.buf[:0]
	return err
}

// Immediate appends and syncs on every write
type Immediate struct {
	mu     sync.Mutex
	dst    Appender
	closed bool
}

// NewImmediate returns a synchronous writer
func NewImmediate(dst Appender) *Immediate {
	return &Immediate{dst: dst}
}

// Write appends the line and syncs it to stable storage
func (w *Immediate) Write(line []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if err := w.dst.Append(line); err != nil {
		return err
	}
	return w.dst.Sync()
}

// Flush is a no-op, nothing is ever buffered
func (w *Immediate) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	return nil
}

// Close closes the appender. Subsequent calls return nil.
func (w *Immediate) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.dst.Close()
}
