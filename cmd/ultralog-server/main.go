// ultralog-server runs the collector that remote ultralog clients deliver to.
//
// Usage:
//
//	ultralog-server --auth-token <token> [--host 127.0.0.1] [--port 9999]
//	                [--tcp-port 0] [--config ultralog.toml] [--set key=value ...]
//
// Records land in a local ultralog file (logs/ultralog.log unless the config
// or --set fp=... says otherwise). Exit codes: 0 clean shutdown, 1 runtime
// failure, 2 bad arguments.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/lixenwraith/ultralog"
	"github.com/lixenwraith/ultralog/collector"
)

const defaultLogFile = "logs/ultralog.log"

var Version = "0.1.0-dev"

// usageError is a bad argument or configuration
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(run())
}

func createApp() *cli.Command {
	return &cli.Command{
		Name:    "ultralog-server",
		Usage:   "collector for remote ultralog delivery",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "HTTP listen host",
				Value: "127.0.0.1",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "HTTP listen port",
				Value:   9999,
			},
			&cli.IntFlag{
				Name:  "tcp-port",
				Usage: "line ingest port, 0 disables",
			},
			&cli.StringFlag{
				Name:     "auth-token",
				Usage:    "bearer token clients must present",
				Sources:  cli.EnvVars("ULTRALOG_AUTH_TOKEN"),
				Required: true,
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "TOML file with an [ultralog] section for the sink logger",
			},
			&cli.StringSliceFlag{
				Name:  "set",
				Usage: "sink logger override as key=value, repeatable",
			},
			&cli.DurationFlag{
				Name:  "shutdown-timeout",
				Usage: "grace period for open requests on exit",
				Value: 10 * time.Second,
			},
		},
		Action: serve,
	}
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := createApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ultralog-server: %v\n", err)
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			return 2
		}
		return 1
	}
	return 0
}

// sinkConfig resolves the sink logger configuration from file and overrides
func sinkConfig(path string, overrides []string) (*ultralog.Config, error) {
	cfg := ultralog.DefaultConfig()
	if path != "" {
		loaded, err := ultralog.NewConfigFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if cfg.FilePath == "" && !cfg.Remote() {
		cfg.FilePath = defaultLogFile
	}
	if err := cfg.ApplyOverride(overrides...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := sinkConfig(cmd.String("config"), cmd.StringSlice("set"))
	if err != nil {
		return &usageError{err}
	}
	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return err
		}
	}

	sink, err := ultralog.New(cfg)
	if err != nil {
		return &usageError{err}
	}
	defer sink.Close()

	token := cmd.String("auth-token")
	srv, err := collector.New(collector.Config{Token: token, Sink: sink})
	if err != nil {
		return &usageError{err}
	}

	errCh := make(chan error, 2)
	addr := net.JoinHostPort(cmd.String("host"), strconv.Itoa(int(cmd.Int("port"))))
	go func() { errCh <- srv.ListenAndServe(addr) }()
	sink.Info("collector listening on", addr)

	var ingest *collector.TCPIngest
	if tcpPort := cmd.Int("tcp-port"); tcpPort > 0 {
		ingest, err = collector.NewTCPIngest(token, sink, srv.Metrics())
		if err != nil {
			return &usageError{err}
		}
		tcpAddr := net.JoinHostPort(cmd.String("host"), strconv.Itoa(int(tcpPort)))
		go func() { errCh <- ingest.Run(tcpAddr) }()
		sink.Info("line ingest listening on", tcpAddr)
	}

	var runErr error
	select {
	case <-ctx.Done():
		sink.Info("shutting down")
	case runErr = <-errCh:
		sink.Error("listener failed:", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cmd.Duration("shutdown-timeout"))
	defer cancel()

	if ingest != nil {
		if err := ingest.Stop(shutdownCtx); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return runErr
}
