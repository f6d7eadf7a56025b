package ultralog

import (
	"fmt"
	"runtime"
	"time"
)

// Stats returns a snapshot of the logger counters
func (l *Logger) Stats() Stats {
	s := Stats{
		Mode:       l.mode,
		Level:      l.level.Load(),
		Uptime:     l.uptime(),
		Processed:  l.state.TotalLogsProcessed.Load(),
		Filtered:   l.state.TotalLogsFiltered.Load(),
		ClosedLogs: l.state.TotalClosedLogs.Load(),
		IOErrors:   l.state.TotalIOErrors.Load(),
	}

	if l.rotator != nil {
		s.Rotations = l.rotator.Rotations()
		s.FileSize = l.rotator.Size()
	}

	if l.queue != nil {
		s.QueueLength = l.queue.Len()
		s.QueueDropped = l.queue.Dropped()

		ds := l.dispatcher.Stats()
		s.DeliveryDropped = ds.RecordsDropped
		s.BatchesSent = ds.BatchesSent
		s.RecordsSent = ds.RecordsSent
		s.Attempts = ds.Attempts
		s.DispatcherState = ds.State.String()
		s.Breaker = ds.Breaker
	}

	return s
}

func (l *Logger) uptime() time.Duration {
	if start, ok := l.state.LoggerStartTime.Load().(time.Time); ok && !start.IsZero() {
		return time.Since(start)
	}
	return 0
}

// handleHeartbeat writes a statistics record through the active path. It
// bypasses the level check.
func (l *Logger) handleHeartbeat() {
	if l.state.ShutdownCalled.Load() {
		return
	}
	l.emit(LevelInfo, l.heartbeatMessage())
}

// heartbeatMessage renders the current counters as key=value pairs
func (l *Logger) heartbeatMessage() string {
	s := l.Stats()
	sequence := l.state.HeartbeatSequence.Add(1)

	msg := fmt.Sprintf("heartbeat sequence=%d mode=%s uptime_hours=%.2f processed=%d filtered=%d io_errors=%d goroutines=%d",
		sequence, s.Mode, s.Uptime.Hours(), s.Processed, s.Filtered, s.IOErrors, runtime.NumGoroutine())

	switch s.Mode {
	case ModeLocal:
		msg += fmt.Sprintf(" rotations=%d file_size=%d", s.Rotations, s.FileSize)
	case ModeRemote:
		msg += fmt.Sprintf(" queued=%d queue_dropped=%d delivery_dropped=%d batches_sent=%d breaker=%s",
			s.QueueLength, s.QueueDropped, s.DeliveryDropped, s.BatchesSent, s.Breaker)
	}
	return msg
}
