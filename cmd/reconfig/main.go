package main

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/ultralog"
)

// Swap loggers and levels rapidly while a producer keeps logging
func main() {
	var count atomic.Int64
	var current atomic.Pointer[ultralog.Logger]

	newLogger := func(i int) *ultralog.Logger {
		l, err := ultralog.NewBuilder().
			Name(fmt.Sprintf("reconfig-%d", i)).
			File("./reconfig.log").
			BufferSize(int64(1024 * (i + 1))).
			Build()
		if err != nil {
			fmt.Printf("Build error: %v\n", err)
			return nil
		}
		return l
	}

	first := newLogger(0)
	if first == nil {
		return
	}
	current.Store(first)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			current.Load().Info("Test log", i)
			count.Add(1)
			time.Sleep(100 * time.Microsecond)
		}
	}()

	levels := []int64{ultralog.LevelDebug, ultralog.LevelWarning, ultralog.LevelInfo}
	for i := 1; i <= 10; i++ {
		next := newLogger(i)
		if next == nil {
			continue
		}
		next.SetLevel(levels[i%len(levels)])

		// Records racing the swap land in the old logger or are counted as after-close
		old := current.Swap(next)
		if err := old.Close(); err != nil {
			fmt.Printf("Close error: %v\n", err)
		}
		stats := old.Stats()
		fmt.Printf("swap %d: processed=%d filtered=%d after_close=%d\n",
			i, stats.Processed, stats.Filtered, stats.ClosedLogs)
		time.Sleep(10 * time.Millisecond)
	}

	<-done
	fmt.Printf("Total logs attempted: %d\n", count.Load())

	if err := current.Load().Close(); err != nil {
		fmt.Printf("Close error: %v\n", err)
	}
}
