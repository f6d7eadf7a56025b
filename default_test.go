package ultralog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSingleton(t *testing.T) {
	l1 := Default()
	l2 := Default()

	assert.Same(t, l1, l2)
	assert.Equal(t, ModeConsole, l1.Mode())
	assert.NoError(t, Flush())
}

func TestConsoleLoggerFallback(t *testing.T) {
	l := consoleLogger()
	l.stderr.Store(&sink{w: &syncBuffer{}})

	l.Debug("hidden")
	l.Info("shown")

	s := l.stderr.Load().(*sink).w.(*syncBuffer).String()
	assert.NotContains(t, s, "hidden")
	assert.Contains(t, s, "ultralog - INFO - shown")
	assert.NoError(t, l.Close())
}
