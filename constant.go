package ultralog

import (
	"time"
)

// Log level constants
const (
	LevelDebug    int64 = 10
	LevelInfo     int64 = 20
	LevelWarning  int64 = 30
	LevelError    int64 = 40
	LevelCritical int64 = 50
)

// Environment variable overriding the configured level at construction
const EnvLevel = "ULOG_LEVEL"

// Output modes reported in Stats
const (
	ModeLocal   = "local"
	ModeConsole = "console"
	ModeRemote  = "remote"
)

// Size multipliers
const (
	sizeKiB int64 = 1024
	sizeMiB       = 1024 * sizeKiB
)

// Timers
const (
	// Minimum wait time used throughout the package
	minWaitTime = 10 * time.Millisecond
	// Flush loop interval used when the configured value is unusable
	fallbackFlushInterval = 50 * time.Millisecond
)
