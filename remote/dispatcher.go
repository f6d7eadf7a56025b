// Package remote implements the asynchronous delivery path: a bounded record
// queue drained by a single dispatcher goroutine into authenticated batches.
package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	retry "github.com/avast/retry-go/v5"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
)

// State is the dispatcher's position in its delivery cycle
type State int32

const (
	StateIdle State = iota
	StateBatching
	StateSending
	StateBackoff
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBatching:
		return "batching"
	case StateSending:
		return "sending"
	case StateBackoff:
		return "backoff"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// DispatcherConfig holds batching, retry and breaker settings
type DispatcherConfig struct {
	Name            string
	BatchSize       int
	FlushInterval   time.Duration
	MaxAttempts     int           // Total attempts per batch, including the first
	BaseDelay       time.Duration // First backoff delay, doubled per retry
	MaxDelay        time.Duration // Backoff cap
	BreakerFailures int           // Consecutive failures that open the breaker
	BreakerTimeout  time.Duration // Open duration before a half-open probe
	// OnError receives dropped-batch and breaker notifications
	OnError func(err error)
}

// DispatcherStats is a snapshot of delivery counters
type DispatcherStats struct {
	BatchesSent    uint64
	RecordsSent    uint64
	BatchesDropped uint64
	RecordsDropped uint64
	Attempts       uint64
	State          State
	Breaker        string
}

// Dispatcher drains a Queue into batches on a size or time trigger
type Dispatcher struct {
	queue   *Queue
	sender  Sender
	cfg     DispatcherConfig
	breaker *gobreaker.CircuitBreaker[struct{}]

	runCtx    context.Context
	cancelRun context.CancelFunc
	stop      chan struct{}
	done      chan struct{}
	started   atomic.Bool
	stopOnce  sync.Once
	stopErr   error

	state          atomic.Int32
	batchesSent    atomic.Uint64
	recordsSent    atomic.Uint64
	batchesDropped atomic.Uint64
	recordsDropped atomic.Uint64
	attempts       atomic.Uint64
}

// NewDispatcher wires q to s. Zero config values take package defaults.
func NewDispatcher(q *Queue, s Sender, cfg DispatcherConfig) *Dispatcher {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 50 * time.Millisecond
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 5
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.BreakerFailures < 1 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "ultralog-remote"
	}
	if cfg.OnError == nil {
		cfg.OnError = func(error) {}
	}

	d := &Dispatcher{
		queue:  q,
		sender: s,
		cfg:    cfg,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	d.runCtx, d.cancelRun = context.WithCancel(context.Background())

	failures := uint32(cfg.BreakerFailures)
	d.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				d.cfg.OnError(fmt.Errorf("remote: circuit %s opened after %d consecutive failures", name, failures))
			}
		},
	})
	return d
}

// Start launches the dispatch loop. Calls after the first are no-ops.
func (d *Dispatcher) Start() {
	if d.started.CompareAndSwap(false, true) {
		go d.run()
	}
}

// Close stops the loop and makes one final, time-bounded attempt to deliver
// everything still queued. Entries left after the deadline are counted as
// dropped. Safe to call more than once.
func (d *Dispatcher) Close(timeout time.Duration) error {
	d.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		// In-flight retries are abandoned once the deadline passes
		stopAbort := context.AfterFunc(ctx, d.cancelRun)
		defer stopAbort()

		close(d.stop)
		if d.started.Load() {
			select {
			case <-d.done:
			case <-ctx.Done():
				d.stopErr = fmt.Errorf("remote: dispatcher did not stop within %v", timeout)
			}
		}

		if d.stopErr == nil {
			d.flush(ctx, false, nil)
		}
		d.cancelRun()

		if rest := d.queue.DrainUpTo(d.queue.Cap()); len(rest) > 0 {
			d.recordsDropped.Add(uint64(len(rest)))
			d.batchesDropped.Add(1)
			d.cfg.OnError(fmt.Errorf("remote: %d records undelivered at shutdown", len(rest)))
		}
		d.setState(StateStopped)
	})
	return d.stopErr
}

// Stats returns a snapshot of the delivery counters
func (d *Dispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		BatchesSent:    d.batchesSent.Load(),
		RecordsSent:    d.recordsSent.Load(),
		BatchesDropped: d.batchesDropped.Load(),
		RecordsDropped: d.recordsDropped.Load(),
		Attempts:       d.attempts.Load(),
		State:          State(d.state.Load()),
		Breaker:        d.breaker.State().String(),
	}
}

// run is the only goroutine assembling batches
func (d *Dispatcher) run() {
	defer close(d.done)

	ticker := time.NewTicker(d.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return

		case <-d.queue.Ready():
			if d.flush(d.runCtx, true, d.stop) {
				ticker.Reset(d.cfg.FlushInterval)
			}

		case <-ticker.C:
			d.flush(d.runCtx, false, d.stop)
		}
	}
}

// flush sends batches until the queue is drained. With fullOnly set it stops
// once fewer than BatchSize entries remain; a closed stop channel ends it
// between batches. Returns true if anything was sent.
func (d *Dispatcher) flush(ctx context.Context, fullOnly bool, stop <-chan struct{}) bool {
	sent := false
	for {
		if fullOnly && d.queue.Len() < d.cfg.BatchSize {
			return sent
		}
		if ctx.Err() != nil {
			return sent
		}

		d.setState(StateBatching)
		entries := d.queue.DrainUpTo(d.cfg.BatchSize)
		if len(entries) == 0 {
			d.setState(StateIdle)
			return sent
		}

		d.deliver(ctx, entries)
		sent = true

		if len(entries) < d.cfg.BatchSize {
			return sent
		}
		select {
		case <-stop:
			return sent
		default:
		}
	}
}

// deliver sends one batch with retry and backoff, dropping it on exhaustion
func (d *Dispatcher) deliver(ctx context.Context, entries []Entry) {
	defer d.setState(StateIdle)

	b := Batch{ID: uuid.NewString(), Entries: entries}
	err := retry.New(
		retry.Context(ctx),
		retry.Attempts(uint(d.cfg.MaxAttempts)),
		retry.DelayType(d.backoff),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(_ uint, _ error) {
			d.setState(StateBackoff)
		}),
	).Do(func() error {
		d.setState(StateSending)
		d.attempts.Add(1)
		_, err := d.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, d.sender.Send(ctx, b)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return retry.Unrecoverable(err)
		}
		return err
	})

	if err != nil {
		d.batchesDropped.Add(1)
		d.recordsDropped.Add(uint64(len(entries)))
		d.cfg.OnError(fmt.Errorf("remote: dropped batch %s of %d records: %w", b.ID, len(entries), err))
		return
	}
	d.batchesSent.Add(1)
	d.recordsSent.Add(uint64(len(entries)))
}

// backoff adapts backoffDelay to retry-go's delay hook
func (d *Dispatcher) backoff(n uint, _ error, _ retry.DelayContext) time.Duration {
	return d.backoffDelay(n)
}

// backoffDelay doubles BaseDelay per retry up to MaxDelay; n starts at 1
func (d *Dispatcher) backoffDelay(n uint) time.Duration {
	if n < 1 {
		n = 1
	}
	if n > 32 {
		return d.cfg.MaxDelay
	}
	delay := d.cfg.BaseDelay << (n - 1)
	if delay <= 0 || delay > d.cfg.MaxDelay {
		return d.cfg.MaxDelay
	}
	return delay
}

func (d *Dispatcher) setState(s State) {
	d.state.Store(int32(s))
}
