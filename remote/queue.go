package remote

import (
	"sync/atomic"
)

// Entry is one formatted record awaiting delivery
type Entry struct {
	Level   string // Level name, e.g. "INFO"
	Message string // Message text without metadata
	Line    []byte // Fully formatted line, newline terminated
}

// Queue is a bounded FIFO shared by producers and a single consumer.
// Enqueue never blocks; when full the entry is dropped and counted.
type Queue struct {
	entries   chan Entry
	ready     chan struct{}
	watermark int
	dropped   atomic.Uint64
	accepted  atomic.Uint64
}

// NewQueue creates a queue holding up to capacity entries. Ready fires once
// at least watermark entries are pending.
func NewQueue(capacity, watermark int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	if watermark < 1 {
		watermark = 1
	}
	return &Queue{
		entries:   make(chan Entry, capacity),
		ready:     make(chan struct{}, 1),
		watermark: watermark,
	}
}

// Enqueue adds e without blocking. Returns false if the queue is full.
func (q *Queue) Enqueue(e Entry) bool {
	select {
	case q.entries <- e:
		q.accepted.Add(1)
	default:
		q.dropped.Add(1)
		return false
	}

	if len(q.entries) >= q.watermark {
		select {
		case q.ready <- struct{}{}:
		default: // Signal already pending
		}
	}
	return true
}

// DrainUpTo removes and returns up to n entries in FIFO order
func (q *Queue) DrainUpTo(n int) []Entry {
	if n <= 0 {
		return nil
	}
	avail := len(q.entries)
	if avail == 0 {
		return nil
	}
	if avail < n {
		n = avail
	}

	batch := make([]Entry, 0, n)
	for len(batch) < n {
		select {
		case e := <-q.entries:
			batch = append(batch, e)
		default:
			return batch
		}
	}
	return batch
}

// Ready is signaled when the pending count reaches the watermark
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// Len returns the number of pending entries
func (q *Queue) Len() int {
	return len(q.entries)
}

// Cap returns the queue capacity
func (q *Queue) Cap() int {
	return cap(q.entries)
}

// Dropped returns the number of entries rejected because the queue was full
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Accepted returns the number of entries successfully enqueued
func (q *Queue) Accepted() uint64 {
	return q.accepted.Load()
}
