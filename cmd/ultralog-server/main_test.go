package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/ultralog"
)

func TestSinkConfig(t *testing.T) {
	t.Run("defaults to local file", func(t *testing.T) {
		cfg, err := sinkConfig("", nil)
		require.NoError(t, err)
		assert.Equal(t, defaultLogFile, cfg.FilePath)
	})

	t.Run("overrides apply last", func(t *testing.T) {
		cfg, err := sinkConfig("", []string{"fp=/tmp/other.log", "level=warning", "console_output=true"})
		require.NoError(t, err)
		assert.Equal(t, "/tmp/other.log", cfg.FilePath)
		assert.Equal(t, "warning", cfg.Level)
		assert.True(t, cfg.ConsoleOutput)
	})

	t.Run("file section", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "server.toml")
		require.NoError(t, os.WriteFile(path, []byte("[ultralog]\nname = \"collector\"\nfp = \"/tmp/c.log\"\n"), 0644))

		cfg, err := sinkConfig(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "collector", cfg.Name)
		assert.Equal(t, "/tmp/c.log", cfg.FilePath)
	})

	t.Run("bad override", func(t *testing.T) {
		_, err := sinkConfig("", []string{"max_file_size=big"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ultralog.ErrConfig)
	})
}

func TestCreateAppFlags(t *testing.T) {
	app := createApp()
	names := make(map[string]bool)
	for _, f := range app.Flags {
		for _, n := range f.Names() {
			names[n] = true
		}
	}
	for _, want := range []string{"host", "port", "tcp-port", "auth-token", "config", "set", "shutdown-timeout"} {
		assert.True(t, names[want], "missing flag %s", want)
	}
}
