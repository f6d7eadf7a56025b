package ultralog

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/lixenwraith/config"
)

// configPrefix is the TOML section holding logger settings
const configPrefix = "ultralog."

// Config holds all logger configuration values
type Config struct {
	// Basic settings
	Name     string `toml:"name"`
	FilePath string `toml:"fp"`    // Active log file, empty for console-only output
	Level    string `toml:"level"` // DEBUG, INFO, WARNING, ERROR, CRITICAL or numeric
	WithTime bool   `toml:"with_time"`

	// Local file
	TruncateFile   bool  `toml:"truncate_file"`
	MaxFileSize    int64 `toml:"max_file_size"` // Bytes
	BackupCount    int64 `toml:"backup_count"`
	EnableRotation bool  `toml:"enable_rotation"`
	FileBufferSize int64 `toml:"file_buffer_size"` // Bytes
	ForceSync      bool  `toml:"force_sync"`       // Flush and fsync every record
	LockTimeoutMs  int64 `toml:"lock_timeout_ms"`

	// Console
	ConsoleOutput bool `toml:"console_output"` // Mirror lines to stderr

	// Remote delivery
	ServerURL         string `toml:"server_url"` // Selects the remote path when set
	AuthToken         string `toml:"auth_token"`
	BatchSize         int64  `toml:"batch_size"`
	FlushIntervalMs   int64  `toml:"flush_interval_ms"` // Remote batching and local flush cadence
	QueueCapacity     int64  `toml:"queue_capacity"`
	MaxAttempts       int64  `toml:"max_attempts"`
	RetryBaseDelayMs  int64  `toml:"retry_base_delay_ms"`
	RetryMaxDelayMs   int64  `toml:"retry_max_delay_ms"`
	RequestTimeoutMs  int64  `toml:"request_timeout_ms"`
	BreakerFailures   int64  `toml:"breaker_failures"`
	BreakerTimeoutMs  int64  `toml:"breaker_timeout_ms"`
	ShutdownTimeoutMs int64  `toml:"shutdown_timeout_ms"`

	// Heartbeat
	HeartbeatIntervalS int64 `toml:"heartbeat_interval_s"` // 0 disables
}

// defaultConfig is the single source for all configurable default values
var defaultConfig = Config{
	// Basic settings
	Name:     "ultralog",
	FilePath: "",
	Level:    "DEBUG",
	WithTime: true,

	// Local file
	TruncateFile:   false,
	MaxFileSize:    10 * sizeMiB,
	BackupCount:    5,
	EnableRotation: true,
	FileBufferSize: 256 * sizeKiB,
	ForceSync:      false,
	LockTimeoutMs:  2000,

	// Console
	ConsoleOutput: false,

	// Remote delivery
	ServerURL:         "",
	AuthToken:         "",
	BatchSize:         50,
	FlushIntervalMs:   50,
	QueueCapacity:     10000,
	MaxAttempts:       5,
	RetryBaseDelayMs:  1000,
	RetryMaxDelayMs:   30000,
	RequestTimeoutMs:  5000,
	BreakerFailures:   5,
	BreakerTimeoutMs:  30000,
	ShutdownTimeoutMs: 5000,

	// Heartbeat
	HeartbeatIntervalS: 0,
}

// DefaultConfig returns a copy of the default configuration
func DefaultConfig() *Config {
	copiedConfig := defaultConfig
	return &copiedConfig
}

// NewConfigFromFile loads the [ultralog] section of a TOML file over the
// defaults and returns a validated Config. A missing file yields defaults.
func NewConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	loader := config.New()
	if err := loader.RegisterStruct(configPrefix, *cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to register config struct: %w", ErrConfig, err)
	}

	if err := loader.Load(path, nil); err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return nil, fmt.Errorf("%w: failed to load config from %s: %w", ErrConfig, path, err)
	}

	if err := extractConfig(loader, configPrefix, cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to extract config values: %w", ErrConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewConfigFromDefaults creates a Config with default values and applies overrides
// keyed by TOML name
func NewConfigFromDefaults(overrides map[string]any) (*Config, error) {
	cfg := DefaultConfig()

	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, fmt.Errorf("%w: failed to apply overrides: %w", ErrConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// extractConfig copies loaded values into cfg by toml tag
func extractConfig(loader *config.Config, prefix string, cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tomlTag := field.Tag.Get("toml")
		if tomlTag == "" {
			continue
		}

		val, found := loader.Get(prefix + tomlTag)
		if !found {
			continue
		}

		if err := setFieldValue(v.Field(i), val); err != nil {
			return fmt.Errorf("failed to set field %s: %w", field.Name, err)
		}
	}

	return nil
}

// applyOverrides applies a map of overrides to the Config struct
func applyOverrides(cfg *Config, overrides map[string]any) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	fieldMap := make(map[string]reflect.Value, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if tomlTag := t.Field(i).Tag.Get("toml"); tomlTag != "" {
			fieldMap[tomlTag] = v.Field(i)
		}
	}

	for key, value := range overrides {
		fieldValue, exists := fieldMap[key]
		if !exists {
			return fmt.Errorf("unknown config key: %s", key)
		}

		if err := setFieldValue(fieldValue, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}

	return nil
}

// setFieldValue sets a reflect.Value with proper type conversion
func setFieldValue(field reflect.Value, value any) error {
	switch field.Kind() {
	case reflect.String:
		strVal, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		field.SetString(strVal)

	case reflect.Int64:
		switch v := value.(type) {
		case int64:
			field.SetInt(v)
		case int:
			field.SetInt(int64(v))
		case float64:
			// Decoders without integer typing report whole numbers as float64
			if v != float64(int64(v)) {
				return fmt.Errorf("expected integer, got %v", v)
			}
			field.SetInt(int64(v))
		default:
			return fmt.Errorf("expected int64, got %T", value)
		}

	case reflect.Bool:
		boolVal, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		field.SetBool(boolVal)

	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}

	return nil
}

// Validate checks every field and the local/remote selection. All problems
// are reported together, each error wraps ErrConfig.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrConfig}, args...)...))
	}

	if strings.TrimSpace(c.Name) == "" {
		add("name cannot be empty")
	}
	if _, err := Level(c.Level); err != nil {
		add("invalid level '%s'", c.Level)
	}

	if c.FileBufferSize < 0 {
		add("file_buffer_size cannot be negative: %d", c.FileBufferSize)
	}
	if c.MaxFileSize < 0 {
		add("max_file_size cannot be negative: %d", c.MaxFileSize)
	}
	if c.BackupCount < 0 {
		add("backup_count cannot be negative: %d", c.BackupCount)
	}
	if c.EnableRotation && c.FilePath != "" && c.MaxFileSize == 0 {
		add("max_file_size must be positive when rotation is enabled")
	}

	if c.BatchSize <= 0 {
		add("batch_size must be positive: %d", c.BatchSize)
	}
	if c.QueueCapacity <= 0 {
		add("queue_capacity must be positive: %d", c.QueueCapacity)
	}
	if c.MaxAttempts <= 0 {
		add("max_attempts must be positive: %d", c.MaxAttempts)
	}
	if c.BreakerFailures <= 0 {
		add("breaker_failures must be positive: %d", c.BreakerFailures)
	}
	if c.HeartbeatIntervalS < 0 {
		add("heartbeat_interval_s cannot be negative: %d", c.HeartbeatIntervalS)
	}

	if c.FlushIntervalMs <= 0 || c.RetryBaseDelayMs <= 0 || c.RetryMaxDelayMs <= 0 ||
		c.RequestTimeoutMs <= 0 || c.BreakerTimeoutMs <= 0 ||
		c.LockTimeoutMs <= 0 || c.ShutdownTimeoutMs <= 0 {
		add("interval and timeout settings must be positive")
	}
	if c.RetryBaseDelayMs > c.RetryMaxDelayMs {
		add("retry_base_delay_ms (%d) cannot be greater than retry_max_delay_ms (%d)",
			c.RetryBaseDelayMs, c.RetryMaxDelayMs)
	}

	// Path selection: server_url selects remote, which excludes fp
	if c.ServerURL != "" {
		if c.FilePath != "" {
			add("fp and server_url are mutually exclusive")
		}
		if c.AuthToken == "" {
			add("auth_token is required when server_url is set")
		}
		if !strings.HasPrefix(c.ServerURL, "http://") && !strings.HasPrefix(c.ServerURL, "https://") {
			add("server_url must start with http:// or https://: %s", c.ServerURL)
		}
	}

	return combineConfigErrors(errs)
}

// Clone creates a copy of the configuration
func (c *Config) Clone() *Config {
	copiedConfig := *c
	return &copiedConfig
}

// Remote reports whether the configuration selects the remote path
func (c *Config) Remote() bool {
	return c.ServerURL != ""
}

// applyEnv applies the ULOG_LEVEL override. An unrecognized value falls back
// to INFO and is returned as a warning.
func (c *Config) applyEnv() error {
	env, ok := os.LookupEnv(EnvLevel)
	if !ok || strings.TrimSpace(env) == "" {
		return nil
	}
	if _, err := Level(env); err != nil {
		c.Level = "INFO"
		return fmt.Errorf("ignoring %s=%q, using INFO", EnvLevel, env)
	}
	c.Level = strings.ToUpper(strings.TrimSpace(env))
	return nil
}

func msDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
