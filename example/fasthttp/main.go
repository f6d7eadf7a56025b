package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/lixenwraith/ultralog"
	"github.com/lixenwraith/ultralog/compat"
)

func main() {
	// Ship server logs to a collector when one is configured
	b := ultralog.NewBuilder().Name("fasthttp").LevelString("info")
	if url := os.Getenv("ULTRALOG_SERVER_URL"); url != "" {
		b = b.Remote(url, os.Getenv("ULTRALOG_AUTH_TOKEN"))
	} else {
		b = b.File("/var/log/fasthttp/server.log")
	}

	logger, err := b.Build()
	if err != nil {
		panic(err)
	}
	defer logger.Close()

	fasthttpAdapter := compat.NewFastHTTPAdapter(
		logger,
		compat.WithDefaultLevel(ultralog.LevelInfo),
		compat.WithLevelDetector(customLevelDetector),
	)

	server := &fasthttp.Server{
		Handler: requestHandler(logger),
		Logger:  fasthttpAdapter,

		Name:              "MyServer",
		Concurrency:       fasthttp.DefaultConcurrency,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		TCPKeepalive:      true,
		ReduceMemoryUsage: true,
	}

	fmt.Println("Starting server on :8080")
	if err := server.ListenAndServe(":8080"); err != nil {
		panic(err)
	}
}

func requestHandler(logger *ultralog.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		logger.Infof("%s %s", ctx.Method(), ctx.Path())
		ctx.SetContentType("text/plain")
		fmt.Fprintf(ctx, "Hello, world! Path: %s\n", ctx.Path())
	}
}

func customLevelDetector(msg string) int64 {
	if strings.Contains(msg, "connection cannot be served") {
		return ultralog.LevelWarning
	}
	if strings.Contains(msg, "error when serving connection") {
		return ultralog.LevelError
	}
	return compat.DetectLogLevel(msg)
}
