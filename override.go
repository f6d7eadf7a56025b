package ultralog

import (
	"fmt"
	"strconv"
	"strings"
)

// ApplyOverride applies "key=value" overrides to the configuration in place.
// Keys are TOML names. All malformed entries are reported together and the
// result is validated.
//
// Example:
//
//	cfg := ultralog.DefaultConfig()
//	err := cfg.ApplyOverride(
//	    "fp=/var/log/app.log",
//	    "level=warning",
//	    "max_file_size=1048576",
//	)
func (c *Config) ApplyOverride(overrides ...string) error {
	next := c.Clone()

	var errs []error
	for _, override := range overrides {
		key, value, err := parseKeyValue(override)
		if err != nil {
			errs = append(errs, asConfigError(err))
			continue
		}

		if err := applyConfigField(next, key, value); err != nil {
			errs = append(errs, asConfigError(err))
		}
	}

	if len(errs) > 0 {
		return combineConfigErrors(errs)
	}
	if err := next.Validate(); err != nil {
		return err
	}

	*c = *next
	return nil
}

// asConfigError reclassifies err under ErrConfig
func asConfigError(err error) error {
	return fmt.Errorf("%w: %s", ErrConfig, strings.TrimPrefix(err.Error(), "ultralog: "))
}

// configErrors is a numbered list of configuration problems
type configErrors struct {
	msg  string
	errs []error
}

func (e *configErrors) Error() string {
	return e.msg
}

func (e *configErrors) Unwrap() []error {
	return e.errs
}

// combineConfigErrors combines multiple configuration errors into a single error
func combineConfigErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	var sb strings.Builder
	sb.WriteString("ultralog: multiple configuration errors:")
	for i, err := range errs {
		errMsg := strings.TrimPrefix(err.Error(), "ultralog: ")
		sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, errMsg))
	}
	return &configErrors{msg: sb.String(), errs: errs}
}

// applyConfigField applies a single key-value override to a Config
func applyConfigField(cfg *Config, key, value string) error {
	switch key {
	// Basic settings
	case "name":
		cfg.Name = value
	case "fp":
		cfg.FilePath = value
	case "level":
		if _, err := Level(value); err != nil {
			return fmtErrorf("invalid level value '%s': %w", value, err)
		}
		cfg.Level = value
	case "with_time":
		return setBool(&cfg.WithTime, key, value)

	// Local file
	case "truncate_file":
		return setBool(&cfg.TruncateFile, key, value)
	case "max_file_size":
		return setInt(&cfg.MaxFileSize, key, value)
	case "backup_count":
		return setInt(&cfg.BackupCount, key, value)
	case "enable_rotation":
		return setBool(&cfg.EnableRotation, key, value)
	case "file_buffer_size":
		return setInt(&cfg.FileBufferSize, key, value)
	case "force_sync":
		return setBool(&cfg.ForceSync, key, value)
	case "lock_timeout_ms":
		return setInt(&cfg.LockTimeoutMs, key, value)

	// Console
	case "console_output":
		return setBool(&cfg.ConsoleOutput, key, value)

	// Remote delivery
	case "server_url":
		cfg.ServerURL = value
	case "auth_token":
		cfg.AuthToken = value
	case "batch_size":
		return setInt(&cfg.BatchSize, key, value)
	case "flush_interval_ms":
		return setInt(&cfg.FlushIntervalMs, key, value)
	case "queue_capacity":
		return setInt(&cfg.QueueCapacity, key, value)
	case "max_attempts":
		return setInt(&cfg.MaxAttempts, key, value)
	case "retry_base_delay_ms":
		return setInt(&cfg.RetryBaseDelayMs, key, value)
	case "retry_max_delay_ms":
		return setInt(&cfg.RetryMaxDelayMs, key, value)
	case "request_timeout_ms":
		return setInt(&cfg.RequestTimeoutMs, key, value)
	case "breaker_failures":
		return setInt(&cfg.BreakerFailures, key, value)
	case "breaker_timeout_ms":
		return setInt(&cfg.BreakerTimeoutMs, key, value)
	case "shutdown_timeout_ms":
		return setInt(&cfg.ShutdownTimeoutMs, key, value)

	// Heartbeat
	case "heartbeat_interval_s":
		return setInt(&cfg.HeartbeatIntervalS, key, value)

	default:
		return fmtErrorf("unknown configuration key '%s'", key)
	}

	return nil
}

func setBool(dst *bool, key, value string) error {
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return fmtErrorf("invalid boolean value for %s '%s': %w", key, value, err)
	}
	*dst = boolVal
	return nil
}

func setInt(dst *int64, key, value string) error {
	intVal, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmtErrorf("invalid integer value for %s '%s': %w", key, value, err)
	}
	*dst = intVal
	return nil
}
