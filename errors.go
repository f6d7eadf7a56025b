package ultralog

import (
	"errors"

	"github.com/lixenwraith/ultralog/filelock"
	"github.com/lixenwraith/ultralog/remote"
)

// Error classes. Only construction reports errors to the caller; runtime
// failures are counted in Stats and written to the internal stderr sink.
var (
	// ErrConfig marks invalid or contradictory configuration
	ErrConfig = errors.New("ultralog: invalid configuration")
	// ErrIO marks file open, write, rename and lock failures
	ErrIO = errors.New("ultralog: io failure")
	// ErrDelivery marks a failed remote delivery
	ErrDelivery = remote.ErrDelivery
	// ErrLockTimeout marks advisory lock contention, classified as ErrIO
	ErrLockTimeout = filelock.ErrTimeout
)
