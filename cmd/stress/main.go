package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lixenwraith/ultralog"
)

const (
	totalBursts    = 100
	logsPerBurst   = 500
	maxMessageSize = 10000
	numWorkers     = 500
)

const configFile = "stress_config.toml"

// Example TOML content for stress test
var tomlContent = `
# Example stress_config.toml
[ultralog]
  name = "stress_test"
  level = "DEBUG"
  fp = "./logs/stress.log"
  truncate_file = true
  max_file_size = 1048576 # Force frequent rotation (1MB)
  backup_count = 20
  file_buffer_size = 65536
  flush_interval_ms = 50
  heartbeat_interval_s = 2
`

var levels = []int64{
	ultralog.LevelDebug,
	ultralog.LevelInfo,
	ultralog.LevelWarning,
	ultralog.LevelError,
}

func generateRandomMessage(size int) string {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 "
	var sb strings.Builder
	sb.Grow(size)
	for i := 0; i < size; i++ {
		sb.WriteByte(chars[rand.IntN(len(chars))])
	}
	return sb.String()
}

// logBurst simulates a burst of logging activity
func logBurst(logger *ultralog.Logger, burstID int) {
	for i := 0; i < logsPerBurst; i++ {
		level := levels[rand.IntN(len(levels))]
		msg := generateRandomMessage(rand.IntN(maxMessageSize) + 10)
		logger.Log(level, msg, "wkr", burstID%numWorkers, "bst", burstID, "seq", i, "rnd", rand.Int64())
	}
}

func main() {
	fmt.Println("--- Logger Stress Test ---")

	if err := os.WriteFile(configFile, []byte(tomlContent), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created config file: %s\n", configFile)

	logsDir := "./logs"
	_ = os.RemoveAll(logsDir)
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
		os.Exit(1)
	}

	cfg, err := ultralog.NewConfigFromFile(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := ultralog.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Logger initialized. Logs will be written to: %s\n", cfg.FilePath)

	fmt.Printf("Starting stress test: %d workers, %d bursts, %d logs/burst.\n",
		numWorkers, totalBursts, logsPerBurst)
	fmt.Println("Check the log directory for rotation. Press Ctrl+C to stop early.")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	burstChan := make(chan int, numWorkers)
	var completedBursts atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < numWorkers; i++ {
		g.Go(func() error {
			for burstID := range burstChan {
				logBurst(logger, burstID)
				completed := completedBursts.Add(1)
				if completed%10 == 0 || completed == totalBursts {
					fmt.Printf("\rProgress: %d/%d bursts completed", completed, totalBursts)
				}
			}
			return nil
		})
	}

	startTime := time.Now()
submit:
	for i := 1; i <= totalBursts; i++ {
		select {
		case burstChan <- i:
		case <-gctx.Done():
			fmt.Println("\n[Signal Received] Halting burst submission.")
			break submit
		}
	}
	close(burstChan)

	fmt.Println("\nWaiting for workers to finish...")
	_ = g.Wait()
	duration := time.Since(startTime)
	finalCompleted := completedBursts.Load()

	fmt.Printf("\n--- Test Finished ---")
	fmt.Printf("\nCompleted %d/%d bursts in %v\n", finalCompleted, totalBursts, duration.Round(time.Millisecond))
	if finalCompleted > 0 && duration.Seconds() > 0 {
		logsPerSec := float64(finalCompleted*logsPerBurst) / duration.Seconds()
		fmt.Printf("Approximate Logs/sec: %.2f\n", logsPerSec)
	}

	stats := logger.Stats()
	fmt.Printf("Processed=%d Filtered=%d Rotations=%d IOErrors=%d\n",
		stats.Processed, stats.Filtered, stats.Rotations, stats.IOErrors)

	fmt.Println("Closing logger...")
	if err := logger.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Logger close error: %v\n", err)
	} else {
		fmt.Println("Logger closed.")
	}

	fmt.Printf("Check log files in '%s' and the config '%s'.\n", logsDir, configFile)
}
