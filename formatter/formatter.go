// Package formatter renders log records into single text lines of the form
// "<time> - <name> - <LEVEL> - <message>\n".
package formatter

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/davecgh/go-spew/spew"

	"github.com/lixenwraith/ultralog/sanitizer"
)

// TimeLayout is the timestamp layout used in formatted lines
const TimeLayout = "2006-01-02 15:04:05"

const separator = " - "

// spewConfig renders composite values on one line with deterministic map order
var spewConfig = &spew.ConfigState{
	Indent:                  " ",
	MaxDepth:                10,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// stamp is a rendered timestamp for one wall-clock second
type stamp struct {
	sec  int64
	text string
}

// Formatter builds lines. It is safe for concurrent use.
type Formatter struct {
	sanitizer *sanitizer.Sanitizer
	withTime  bool
	location  *time.Location
	last      atomic.Pointer[stamp]
}

// New creates a formatter; withTime controls the timestamp prefix
func New(withTime bool) *Formatter {
	return &Formatter{
		sanitizer: sanitizer.New().Policy(sanitizer.PolicyLine),
		withTime:  withTime,
		location:  time.Local,
	}
}

// Location sets the time zone used for timestamps
func (f *Formatter) Location(loc *time.Location) *Formatter {
	if loc != nil {
		f.location = loc
	}
	return f
}

// WithTime reports whether lines carry a timestamp
func (f *Formatter) WithTime() bool {
	return f.withTime
}

// Message joins args with single spaces into a one-line message
func (f *Formatter) Message(args []any) string {
	if len(args) == 1 {
		if s, ok := args[0].(string); ok {
			return f.sanitizer.Sanitize(s)
		}
	}
	buf := make([]byte, 0, 64)
	for i, arg := range args {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = f.appendValue(buf, arg)
	}
	return string(buf)
}

// Line renders a complete newline-terminated record. msg is expected to
// already be single-line (see Message).
func (f *Formatter) Line(ts time.Time, level int64, name, msg string) []byte {
	levelStr := LevelString(level)
	n := len(name) + len(levelStr) + len(msg) + 2*len(separator) + 1
	if f.withTime {
		n += len(TimeLayout) + len(separator)
	}

	buf := make([]byte, 0, n)
	if f.withTime {
		buf = append(buf, f.timestamp(ts)...)
		buf = append(buf, separator...)
	}
	buf = append(buf, name...)
	buf = append(buf, separator...)
	buf = append(buf, levelStr...)
	buf = append(buf, separator...)
	buf = append(buf, msg...)
	return append(buf, '\n')
}

// timestamp returns the rendered second for ts, reusing the previous
// rendering while the second has not changed
func (f *Formatter) timestamp(ts time.Time) string {
	sec := ts.Unix()
	if s := f.last.Load(); s != nil && s.sec == sec {
		return s.text
	}
	s := &stamp{sec: sec, text: ts.In(f.location).Format(TimeLayout)}
	f.last.Store(s)
	return s.text
}

// LevelString converts a numeric level to its name
func LevelString(level int64) string {
	switch level {
	case 10:
		return "DEBUG"
	case 20:
		return "INFO"
	case 30:
		return "WARNING"
	case 40:
		return "ERROR"
	case 50:
		return "CRITICAL"
	default:
		return "LEVEL(" + strconv.FormatInt(level, 10) + ")"
	}
}

// appendValue converts a single argument
func (f *Formatter) appendValue(buf []byte, v any) []byte {
	switch val := v.(type) {
	case string:
		return f.sanitizer.Append(buf, val)
	case []byte:
		return f.sanitizer.Append(buf, string(val))
	case rune:
		var rb [utf8.UTFMax]byte
		n := utf8.EncodeRune(rb[:], val)
		return f.sanitizer.Append(buf, string(rb[:n]))
	case int:
		return strconv.AppendInt(buf, int64(val), 10)
	case int64:
		return strconv.AppendInt(buf, val, 10)
	case uint:
		return strconv.AppendUint(buf, uint64(val), 10)
	case uint64:
		return strconv.AppendUint(buf, val, 10)
	case float32:
		return strconv.AppendFloat(buf, float64(val), 'f', -1, 32)
	case float64:
		return strconv.AppendFloat(buf, val, 'f', -1, 64)
	case bool:
		return strconv.AppendBool(buf, val)
	case nil:
		return append(buf, "nil"...)
	case time.Time:
		return append(buf, val.In(f.location).Format(TimeLayout)...)
	case time.Duration:
		return append(buf, val.String()...)
	case error:
		return f.sanitizer.Append(buf, val.Error())
	case fmt.Stringer:
		return f.sanitizer.Append(buf, val.String())
	default:
		return f.sanitizer.Append(buf, spewConfig.Sprintf("%+v", val))
	}
}
