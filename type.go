package ultralog

import (
	"io"
	"time"
)

// Record is a single log entry, immutable once created
type Record struct {
	Time    time.Time
	Level   int64
	Name    string
	Message string
}

// Formatter renders records. The default is *formatter.Formatter.
type Formatter interface {
	// Message joins call arguments into a single-line message
	Message(args []any) string
	// Line renders a complete newline-terminated line
	Line(ts time.Time, level int64, name, msg string) []byte
}

// Stats is a snapshot of logger counters
type Stats struct {
	Mode            string
	Level           int64
	Uptime          time.Duration
	Processed       uint64 // Records accepted past the level check
	Filtered        uint64 // Records rejected by the level check
	ClosedLogs      uint64 // Records logged after Close
	IOErrors        uint64
	Rotations       uint64
	FileSize        int64
	QueueLength     int
	QueueDropped    uint64 // Rejected by a full remote queue
	DeliveryDropped uint64 // Dropped after exhausting delivery attempts
	BatchesSent     uint64
	RecordsSent     uint64
	Attempts        uint64
	DispatcherState string
	Breaker         string
}

// Dropped returns all records lost on the remote path
func (s Stats) Dropped() uint64 {
	return s.QueueDropped + s.DeliveryDropped
}

// sink is a wrapper around an io.Writer, atomic value type change workaround
type sink struct {
	w io.Writer
}
