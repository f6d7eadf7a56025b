package ultralog

import (
	"io"

	"github.com/lixenwraith/ultralog/remote"
)

// Builder provides a fluent API for building loggers.
// It wraps a Config instance and provides chainable methods for setting values.
type Builder struct {
	cfg       *Config
	formatter Formatter
	stderr    io.Writer
	sender    remote.Sender
	err       error // Accumulate errors for deferred handling
}

// NewBuilder creates a new builder with default configuration values
func NewBuilder() *Builder {
	return &Builder{
		cfg: DefaultConfig(),
	}
}

// Build creates a new Logger instance with the specified configuration
func (b *Builder) Build() (*Logger, error) {
	if b.err != nil {
		return nil, b.err
	}
	return newLogger(b.cfg, b.formatter, b.stderr, b.sender)
}

// Config replaces the accumulated configuration with a copy of cfg
func (b *Builder) Config(cfg *Config) *Builder {
	if cfg != nil {
		b.cfg = cfg.Clone()
	}
	return b
}

// Override applies "key=value" overrides
func (b *Builder) Override(overrides ...string) *Builder {
	if b.err != nil {
		return b
	}
	if err := b.cfg.ApplyOverride(overrides...); err != nil {
		b.err = err
	}
	return b
}

// Name sets the logger name shown in every line
func (b *Builder) Name(name string) *Builder {
	b.cfg.Name = name
	return b
}

// Level sets the minimum level by number
func (b *Builder) Level(level int64) *Builder {
	b.cfg.Level = formatLevel(level)
	return b
}

// LevelString sets the minimum level from a string
func (b *Builder) LevelString(level string) *Builder {
	if b.err != nil {
		return b
	}
	if _, err := Level(level); err != nil {
		b.err = asConfigError(err)
		return b
	}
	b.cfg.Level = level
	return b
}

// File selects the local path and sets the active file
func (b *Builder) File(path string) *Builder {
	b.cfg.FilePath = path
	return b
}

// WithTime toggles the timestamp prefix
func (b *Builder) WithTime(enable bool) *Builder {
	b.cfg.WithTime = enable
	return b
}

// Rotation sets the size threshold in bytes and the number of backups kept
func (b *Builder) Rotation(maxFileSize, backupCount int64) *Builder {
	b.cfg.EnableRotation = true
	b.cfg.MaxFileSize = maxFileSize
	b.cfg.BackupCount = backupCount
	return b
}

// DisableRotation lets the active file grow without bound
func (b *Builder) DisableRotation() *Builder {
	b.cfg.EnableRotation = false
	return b
}

// Truncate empties the active file on open
func (b *Builder) Truncate(enable bool) *Builder {
	b.cfg.TruncateFile = enable
	return b
}

// BufferSize sets the in-memory buffer threshold in bytes
func (b *Builder) BufferSize(size int64) *Builder {
	b.cfg.FileBufferSize = size
	return b
}

// ForceSync flushes and syncs every record
func (b *Builder) ForceSync(enable bool) *Builder {
	b.cfg.ForceSync = enable
	return b
}

// ConsoleOutput mirrors every line to stderr
func (b *Builder) ConsoleOutput(enable bool) *Builder {
	b.cfg.ConsoleOutput = enable
	return b
}

// Remote selects the remote path
func (b *Builder) Remote(serverURL, authToken string) *Builder {
	b.cfg.ServerURL = serverURL
	b.cfg.AuthToken = authToken
	return b
}

// Batching sets the remote batch size and flush interval
func (b *Builder) Batching(batchSize, flushIntervalMs int64) *Builder {
	b.cfg.BatchSize = batchSize
	b.cfg.FlushIntervalMs = flushIntervalMs
	return b
}

// QueueCapacity sets the remote queue bound
func (b *Builder) QueueCapacity(capacity int64) *Builder {
	b.cfg.QueueCapacity = capacity
	return b
}

// Retry sets the delivery attempt budget and the backoff base and cap
func (b *Builder) Retry(maxAttempts, baseDelayMs, maxDelayMs int64) *Builder {
	b.cfg.MaxAttempts = maxAttempts
	b.cfg.RetryBaseDelayMs = baseDelayMs
	b.cfg.RetryMaxDelayMs = maxDelayMs
	return b
}

// HeartbeatIntervalS enables periodic statistics records
func (b *Builder) HeartbeatIntervalS(interval int64) *Builder {
	b.cfg.HeartbeatIntervalS = interval
	return b
}

// Formatter replaces the line formatter
func (b *Builder) Formatter(f Formatter) *Builder {
	b.formatter = f
	return b
}

// Stderr redirects console output and internal diagnostics
func (b *Builder) Stderr(w io.Writer) *Builder {
	b.stderr = w
	return b
}

// Sender replaces the HTTP transport on the remote path
func (b *Builder) Sender(s remote.Sender) *Builder {
	b.sender = s
	return b
}

// Example usage:
// logger, err := ultralog.NewBuilder().
//
//	Name("api").
//	File("/var/log/app/api.log").
//	LevelString("info").
//	Rotation(10<<20, 5).
//	Build()
//
// if err == nil {
//
//	 defer logger.Close()
//	 logger.Info("Logger initialized successfully")
//
// }
