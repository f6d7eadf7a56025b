package main

import (
	"fmt"
	"os"
	"time"

	"github.com/lixenwraith/ultralog"
)

func main() {
	if err := os.MkdirAll("./logs", 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create test logs directory: %v\n", err)
		os.Exit(1)
	}

	// Each run builds a fresh logger with a different heartbeat cadence
	runs := []struct {
		interval    int64
		description string
	}{
		{0, "Heartbeats disabled"},
		{1, "Heartbeat every second"},
		{2, "Heartbeat every two seconds"},
	}

	for _, run := range runs {
		overrides := []string{
			"name=heartbeat",
			"fp=./logs/heartbeat.log",
			"level=WARNING", // Heartbeats are written regardless of level
			"console_output=true",
			fmt.Sprintf("heartbeat_interval_s=%d", run.interval),
		}

		cfg := ultralog.DefaultConfig()
		if err := cfg.ApplyOverride(overrides...); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
			os.Exit(1)
		}

		logger, err := ultralog.New(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\n--- Testing heartbeat interval %ds: %s ---\n", run.interval, run.description)
		logger.Warning("Heartbeat test started", "interval", run.interval)

		// Generate some logs to move the counters
		for j := 0; j < 10; j++ {
			logger.Debug("Filtered test log", "iteration", j)
			logger.Error("Error test log", "iteration", j)
			time.Sleep(100 * time.Millisecond)
		}

		waitTime := 3 * time.Second
		fmt.Printf("Waiting %v for heartbeats to generate...\n", waitTime)
		time.Sleep(waitTime)

		logger.Warning("Heartbeat test completed", "interval", run.interval)
		if err := logger.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to close logger: %v\n", err)
		}
	}

	fmt.Println("\nHeartbeat test program completed successfully")
	fmt.Println("Check ./logs/heartbeat.log for heartbeat records")
}
