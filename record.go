package ultralog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lixenwraith/ultralog/formatter"
	"github.com/lixenwraith/ultralog/remote"
	"github.com/lixenwraith/ultralog/writer"
)

// Log records args at level. Records below the current minimum level return
// before any formatting. Failures are counted and reported to stderr, never
// returned.
func (l *Logger) Log(level int64, args ...any) {
	if level < l.level.Load() {
		l.state.TotalLogsFiltered.Add(1)
		return
	}
	if l.state.ShutdownCalled.Load() {
		l.handleClosedLog()
		return
	}
	l.emit(level, l.formatter.Message(args))
}

// Logf records a printf-style message at level
func (l *Logger) Logf(level int64, format string, args ...any) {
	if level < l.level.Load() {
		l.state.TotalLogsFiltered.Add(1)
		return
	}
	if l.state.ShutdownCalled.Load() {
		l.handleClosedLog()
		return
	}
	l.emit(level, l.formatter.Message([]any{fmt.Sprintf(format, args...)}))
}

// emit formats a record and routes it to the active path
func (l *Logger) emit(level int64, msg string) {
	rec := Record{Time: time.Now(), Level: level, Name: l.cfg.Name, Message: msg}
	line := l.formatter.Line(rec.Time, rec.Level, rec.Name, rec.Message)

	if l.console {
		l.writeConsole(line)
	}

	switch {
	case l.queue != nil:
		// Drops are counted by the queue
		l.queue.Enqueue(remote.Entry{
			Level:   formatter.LevelString(rec.Level),
			Message: rec.Message,
			Line:    line,
		})
	case l.writer != nil:
		if err := l.writer.Write(line); err != nil {
			if errors.Is(err, writer.ErrClosed) {
				l.handleClosedLog()
				return
			}
			l.handleIOFailure("write", err)
		}
	}
	l.state.TotalLogsProcessed.Add(1)
}

// writeConsole mirrors a line to the stderr sink
func (l *Logger) writeConsole(line []byte) {
	s := l.stderr.Load().(*sink)
	l.stderrMu.Lock()
	_, _ = s.w.Write(line)
	l.stderrMu.Unlock()
}

// handleClosedLog counts a record logged after Close and warns once
func (l *Logger) handleClosedLog() {
	l.state.TotalClosedLogs.Add(1)
	if l.state.ClosedWarned.CompareAndSwap(false, true) {
		l.internalLog("warning - log called after close, record discarded\n")
	}
}

// handleIOFailure counts and reports a swallowed local write failure
func (l *Logger) handleIOFailure(op string, err error) {
	l.state.TotalIOErrors.Add(1)
	l.internalLog("io failure - %s '%s': %v\n", op, l.cfg.FilePath, err)
}

// internalLog handles writing internal logger diagnostics to stderr
func (l *Logger) internalLog(format string, args ...any) {
	if !strings.HasPrefix(format, "ultralog: ") {
		format = "ultralog: " + format
	}
	s := l.stderr.Load().(*sink)
	l.stderrMu.Lock()
	fmt.Fprintf(s.w, format, args...)
	l.stderrMu.Unlock()
}
