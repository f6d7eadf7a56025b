package ultralog

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/lixenwraith/ultralog/formatter"
)

var (
	defaultOnce   sync.Once
	defaultLogger *Logger
)

// Default returns the process-wide logger, built on first use from
// DefaultConfig plus the environment. If that fails a console logger is used.
// Explicit instances from New are preferred where they can be passed around.
func Default() *Logger {
	defaultOnce.Do(func() {
		l, err := New(DefaultConfig())
		if err != nil {
			fmt.Fprintf(os.Stderr, "ultralog: default logger: %v, using console\n", err)
			l = consoleLogger()
		}
		defaultLogger = l
	})
	return defaultLogger
}

// consoleLogger builds an INFO console logger without consulting the environment
func consoleLogger() *Logger {
	l := &Logger{
		cfg:       DefaultConfig(),
		formatter: formatter.New(true),
		mode:      ModeConsole,
		console:   true,
	}
	l.stderr.Store(&sink{w: os.Stderr})
	l.state.LoggerStartTime.Store(time.Now())
	l.level.Store(LevelInfo)
	return l
}

// Debug logs a message at debug level
func Debug(args ...any) {
	Default().Debug(args...)
}

// Info logs a message at info level
func Info(args ...any) {
	Default().Info(args...)
}

// Warning logs a message at warning level
func Warning(args ...any) {
	Default().Warning(args...)
}

// Error logs a message at error level
func Error(args ...any) {
	Default().Error(args...)
}

// Critical logs a message at critical level
func Critical(args ...any) {
	Default().Critical(args...)
}

// Logf logs a formatted message at level
func Logf(level int64, format string, args ...any) {
	Default().Logf(level, format, args...)
}

// SetLevel changes the default logger's minimum level
func SetLevel(level int64) {
	Default().SetLevel(level)
}

// Flush writes the default logger's buffered lines
func Flush() error {
	return Default().Flush()
}
