// Package ultralog is a thread-safe logger that writes each record either to a
// rotating local file or to a remote collector, never both.
//
// The local path buffers whole lines in memory and appends them to a file
// that is rotated into numbered backups under an advisory lock. The remote
// path enqueues records without blocking and delivers them in authenticated
// batches from a single background dispatcher.
package ultralog

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/ultralog/filelock"
	"github.com/lixenwraith/ultralog/formatter"
	"github.com/lixenwraith/ultralog/remote"
	"github.com/lixenwraith/ultralog/rotator"
	"github.com/lixenwraith/ultralog/writer"
)

// Logger is the core struct that encapsulates all logger functionality
type Logger struct {
	cfg       *Config // Immutable after construction
	level     atomic.Int64
	formatter Formatter
	state     State
	mode      string

	console   bool
	stderr    atomic.Value // stores *sink
	stderrMu  sync.Mutex
	closeOnce sync.Once
	closeErr  error

	// Local path
	rotator *rotator.Rotator
	writer  writer.Writer

	// Remote path
	queue      *remote.Queue
	dispatcher *remote.Dispatcher

	// Background flush and heartbeat loop, nil when not needed
	stopLoop chan struct{}
	loopDone chan struct{}
}

// New validates cfg, applies the ULOG_LEVEL environment override and opens
// the write path selected by the configuration. cfg is cloned; later changes
// to it have no effect. A nil cfg uses DefaultConfig.
func New(cfg *Config) (*Logger, error) {
	return newLogger(cfg, nil, nil, nil)
}

// newLogger is the shared constructor; nil arguments take defaults
func newLogger(cfg *Config, f Formatter, errOut io.Writer, sender remote.Sender) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg = cfg.Clone()

	l := &Logger{cfg: cfg}
	if errOut == nil {
		errOut = os.Stderr
	}
	l.stderr.Store(&sink{w: errOut})
	l.state.LoggerStartTime.Store(time.Now())
	l.state.LoopExited.Store(true)

	if err := cfg.applyEnv(); err != nil {
		l.internalLog("warning - %v\n", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, _ := Level(cfg.Level)
	l.level.Store(level)

	if f == nil {
		f = formatter.New(cfg.WithTime)
	}
	l.formatter = f

	switch {
	case cfg.Remote():
		if err := l.openRemote(sender); err != nil {
			return nil, err
		}
	case cfg.FilePath != "":
		if err := l.openLocal(); err != nil {
			return nil, err
		}
	default:
		l.mode = ModeConsole
	}

	l.console = cfg.ConsoleOutput || l.mode == ModeConsole
	l.startLoop()
	return l, nil
}

// openLocal wires rotator, lock and writer for the configured file
func (l *Logger) openLocal() error {
	cfg := l.cfg

	r, err := rotator.New(rotator.Options{
		Path:        cfg.FilePath,
		MaxSize:     cfg.MaxFileSize,
		BackupCount: int(cfg.BackupCount),
		Enabled:     cfg.EnableRotation,
		Truncate:    cfg.TruncateFile,
		Lock:        filelock.New(cfg.FilePath, msDuration(cfg.LockTimeoutMs)),
	})
	if err != nil {
		return fmtErrorf("%w: failed to open log file: %w", ErrIO, err)
	}

	l.rotator = r
	l.writer = writer.New(r, int(cfg.FileBufferSize), cfg.ForceSync)
	l.mode = ModeLocal
	return nil
}

// openRemote wires queue, sender and dispatcher and starts delivery
func (l *Logger) openRemote(sender remote.Sender) error {
	cfg := l.cfg

	if sender == nil {
		s, err := remote.NewHTTPSender(remote.HTTPOptions{
			ServerURL: cfg.ServerURL,
			Token:     cfg.AuthToken,
			Timeout:   msDuration(cfg.RequestTimeoutMs),
		})
		if err != nil {
			return fmtErrorf("%w: %w", ErrConfig, err)
		}
		sender = s
	}

	l.queue = remote.NewQueue(int(cfg.QueueCapacity), int(cfg.BatchSize))
	l.dispatcher = remote.NewDispatcher(l.queue, sender, remote.DispatcherConfig{
		Name:            cfg.Name,
		BatchSize:       int(cfg.BatchSize),
		FlushInterval:   msDuration(cfg.FlushIntervalMs),
		MaxAttempts:     int(cfg.MaxAttempts),
		BaseDelay:       msDuration(cfg.RetryBaseDelayMs),
		MaxDelay:        msDuration(cfg.RetryMaxDelayMs),
		BreakerFailures: int(cfg.BreakerFailures),
		BreakerTimeout:  msDuration(cfg.BreakerTimeoutMs),
		OnError: func(err error) {
			l.internalLog("%v\n", err)
		},
	})
	l.dispatcher.Start()
	l.mode = ModeRemote
	return nil
}

// SetLevel changes the minimum level at runtime
func (l *Logger) SetLevel(level int64) {
	l.level.Store(level)
}

// Level returns the current minimum level
func (l *Logger) Level() int64 {
	return l.level.Load()
}

// Mode returns the active output path: local, console or remote
func (l *Logger) Mode() string {
	return l.mode
}

// GetConfig returns a copy of the configuration the logger was built with
func (l *Logger) GetConfig() *Config {
	return l.cfg.Clone()
}
