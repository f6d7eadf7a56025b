package ultralog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		wantErr  bool
	}{
		{"debug", LevelDebug, false},
		{"DEBUG", LevelDebug, false},
		{" info ", LevelInfo, false},
		{"warning", LevelWarning, false},
		{"warn", LevelWarning, false},
		{"error", LevelError, false},
		{"critical", LevelCritical, false},
		{"fatal", LevelCritical, false},
		{"25", 25, false},
		{"-5", 0, true},
		{"invalid", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := Level(tt.input)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, level)
			}
		})
	}
}

func TestFormatLevel(t *testing.T) {
	for _, name := range []string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"} {
		level, err := Level(name)
		require.NoError(t, err)
		assert.Equal(t, name, formatLevel(level))
	}
	assert.Equal(t, "25", formatLevel(25))
}

func TestParseKeyValue(t *testing.T) {
	tests := []struct {
		input     string
		wantKey   string
		wantValue string
		wantErr   bool
	}{
		{"key=value", "key", "value", false},
		{" key = value ", "key", "value", false},
		{"key=value=with=equals", "key", "value=with=equals", false},
		{"noequals", "", "", true},
		{"=value", "", "", true},
		{"key=", "key", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			key, value, err := parseKeyValue(tt.input)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantKey, key)
				assert.Equal(t, tt.wantValue, value)
			}
		})
	}
}

func TestFmtErrorf(t *testing.T) {
	err := fmtErrorf("test error: %s", "details")
	assert.Error(t, err)
	assert.Equal(t, "ultralog: test error: details", err.Error())

	// Already prefixed
	err = fmtErrorf("ultralog: already prefixed")
	assert.Equal(t, "ultralog: already prefixed", err.Error())
}

func TestApplyOverride(t *testing.T) {
	t.Run("applies typed values", func(t *testing.T) {
		cfg := DefaultConfig()
		err := cfg.ApplyOverride(
			"name=svc",
			"level=warn",
			"with_time=false",
			"batch_size=10",
			"server_url=https://collector",
			"auth_token=secret",
		)
		require.NoError(t, err)
		assert.Equal(t, "svc", cfg.Name)
		assert.Equal(t, "warn", cfg.Level)
		assert.False(t, cfg.WithTime)
		assert.Equal(t, int64(10), cfg.BatchSize)
		assert.True(t, cfg.Remote())
	})

	t.Run("numbered errors leave config untouched", func(t *testing.T) {
		cfg := DefaultConfig()
		err := cfg.ApplyOverride(
			"name=changed",
			"batch_size=many",
			"nokey",
			"unknown_key=1",
		)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfig))

		msg := err.Error()
		assert.Contains(t, msg, "ultralog: multiple configuration errors:")
		assert.Contains(t, msg, "1. invalid configuration: invalid integer value for batch_size 'many'")
		assert.Contains(t, msg, "2. invalid configuration: invalid format in override string 'nokey'")
		assert.Contains(t, msg, "3. invalid configuration: unknown configuration key 'unknown_key'")
		assert.NotContains(t, msg, "ultralog: ultralog:")

		assert.Equal(t, "ultralog", cfg.Name)
	})

	t.Run("validation runs on the result", func(t *testing.T) {
		cfg := DefaultConfig()
		err := cfg.ApplyOverride("server_url=http://collector")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "auth_token is required")
		assert.Empty(t, cfg.ServerURL)
	})

	t.Run("invalid level", func(t *testing.T) {
		cfg := DefaultConfig()
		err := cfg.ApplyOverride("level=shout")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConfig)
		assert.Contains(t, err.Error(), "invalid level value 'shout'")
	})
}
