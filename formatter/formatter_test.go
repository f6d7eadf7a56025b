package formatter

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLine(t *testing.T) {
	ts := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)

	t.Run("with time", func(t *testing.T) {
		f := New(true).Location(time.UTC)
		line := f.Line(ts, 20, "svc", "started")
		assert.Equal(t, "2024-01-02 15:04:05 - svc - INFO - started\n", string(line))
	})

	t.Run("without time", func(t *testing.T) {
		f := New(false)
		line := f.Line(ts, 40, "svc", "boom")
		assert.Equal(t, "svc - ERROR - boom\n", string(line))
	})

	t.Run("timestamp cache follows the clock", func(t *testing.T) {
		f := New(true).Location(time.UTC)
		first := f.Line(ts, 20, "n", "a")
		same := f.Line(ts.Add(300*time.Millisecond), 20, "n", "b")
		next := f.Line(ts.Add(time.Second), 20, "n", "c")

		assert.True(t, strings.HasPrefix(string(first), "2024-01-02 15:04:05"))
		assert.True(t, strings.HasPrefix(string(same), "2024-01-02 15:04:05"))
		assert.True(t, strings.HasPrefix(string(next), "2024-01-02 15:04:06"))
	})
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    int64
		expected string
	}{
		{10, "DEBUG"},
		{20, "INFO"},
		{30, "WARNING"},
		{40, "ERROR"},
		{50, "CRITICAL"},
		{35, "LEVEL(35)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, LevelString(tt.level))
		})
	}
}

type point struct {
	X, Y int
}

type named string

func (n named) String() string { return "named:" + string(n) }

func TestMessage(t *testing.T) {
	f := New(false)

	tests := []struct {
		name     string
		args     []any
		expected string
	}{
		{"single string", []any{"hello"}, "hello"},
		{"mixed primitives", []any{"count", 3, 1.5, true, nil}, "count 3 1.5 true nil"},
		{"error and stringer", []any{errors.New("bad"), named("x")}, "bad named:x"},
		{"bytes", []any{[]byte("raw")}, "raw"},
		{"duration", []any{1500 * time.Millisecond}, "1.5s"},
		{"embedded newline", []any{"line1\nline2"}, "line1<0a>line2"},
		{"struct via spew", []any{point{X: 1, Y: 2}}, "{X:1 Y:2}"},
		{"map via spew sorted", []any{map[string]int{"b": 2, "a": 1}}, "map[a:1 b:2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.Message(tt.args))
		})
	}
}

// TestLineIsSingleLine verifies a message can never split a record
func TestLineIsSingleLine(t *testing.T) {
	f := New(true)
	msg := f.Message([]any{"a\nb\r\nc", map[string]string{"k": "v\nw"}})
	line := f.Line(time.Now(), 30, "svc", msg)

	require.True(t, strings.HasSuffix(string(line), "\n"))
	assert.Equal(t, 1, strings.Count(string(line), "\n"))
}

func TestConcurrentLines(t *testing.T) {
	f := New(true)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				line := f.Line(time.Now(), 20, "svc", f.Message([]any{"msg", j}))
				assert.Contains(t, string(line), " - svc - INFO - msg ")
			}
		}()
	}
	wg.Wait()
}
