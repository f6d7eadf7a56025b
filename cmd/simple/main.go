package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/lixenwraith/ultralog"
)

const configFile = "simple_config.toml"

// Example TOML content
var tomlContent = `
# Example simple_config.toml
[ultralog]
  name = "simple"
  level = "DEBUG"
  fp = "./simple_logs/simple.log"
  console_output = true
  flush_interval_ms = 100
  # Other settings use defaults
`

func main() {
	fmt.Println("--- Simple Logger Example ---")

	if err := os.WriteFile(configFile, []byte(tomlContent), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created config file: %s\n", configFile)

	if err := os.MkdirAll("./simple_logs", 0755); err != nil {
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
	fmt.Println("Logger initialized.")

	logger.Debug("This is a debug message.", "user_id", 123)
	logger.Info("Application starting...")
	logger.Warning("Potential issue detected.", "threshold", 0.95)
	logger.Errorf("An error occurred! code=%d", 500)

	// Logging from goroutines
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger.Info("Goroutine started", "id", id)
			time.Sleep(time.Duration(50+id*50) * time.Millisecond)
			logger.Info("Goroutine finished", "id", id)
		}(i)
	}
	wg.Wait()

	// Raising the level at runtime hides debug output
	logger.SetLevel(ultralog.LevelWarning)
	logger.Debug("not written")
	logger.Critical("written")

	fmt.Println("Closing logger...")
	if err := logger.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Logger close error: %v\n", err)
	} else {
		fmt.Println("Logger closed.")
	}

	fmt.Println("--- Example Finished ---")
	fmt.Printf("Check './simple_logs' and the config '%s'.\n", configFile)
}
