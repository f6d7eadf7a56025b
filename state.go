package ultralog

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/ultralog/writer"
)

// State encapsulates the runtime state of the logger
type State struct {
	ShutdownCalled atomic.Bool
	ClosedWarned   atomic.Bool // One-time warning for logging after Close
	LoopExited     atomic.Bool // Tracks if the background loop has exited

	LoggerStartTime atomic.Value // Stores time.Time for uptime calculation

	// Counters
	TotalLogsProcessed atomic.Uint64
	TotalLogsFiltered  atomic.Uint64
	TotalClosedLogs    atomic.Uint64
	TotalIOErrors      atomic.Uint64
	HeartbeatSequence  atomic.Uint64
}

// Close stops background work, flushes pending data and releases the file or
// network resources, bounded by shutdown_timeout_ms. Log calls after Close are
// no-ops. Safe to call more than once and from any goroutine.
func (l *Logger) Close() error {
	l.closeOnce.Do(func() {
		l.state.ShutdownCalled.Store(true)
		timeout := msDuration(l.cfg.ShutdownTimeoutMs)

		var errs []error
		if l.stopLoop != nil {
			close(l.stopLoop)
			select {
			case <-l.loopDone:
			case <-time.After(timeout):
				errs = append(errs, fmtErrorf("background loop did not exit within %v", timeout))
			}
		}

		if l.writer != nil {
			if err := l.writer.Close(); err != nil {
				l.state.TotalIOErrors.Add(1)
				errs = append(errs, fmtErrorf("%w: close '%s': %w", ErrIO, l.cfg.FilePath, err))
			}
		}

		if l.dispatcher != nil {
			if err := l.dispatcher.Close(timeout); err != nil {
				errs = append(errs, fmtErrorf("%w", err))
			}
		}

		l.closeErr = errors.Join(errs...)
	})
	return l.closeErr
}

// Flush writes buffered lines to the file. It is a no-op on the remote and
// console paths and after Close.
func (l *Logger) Flush() error {
	if l.writer == nil || l.state.ShutdownCalled.Load() {
		return nil
	}
	if err := l.writer.Flush(); err != nil {
		if errors.Is(err, writer.ErrClosed) {
			return nil
		}
		l.state.TotalIOErrors.Add(1)
		return fmtErrorf("%w: flush '%s': %w", ErrIO, l.cfg.FilePath, err)
	}
	return nil
}

// Closed reports whether Close has been called
func (l *Logger) Closed() bool {
	return l.state.ShutdownCalled.Load()
}
