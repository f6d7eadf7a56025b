// Package collector is the receiving side of remote delivery. It accepts
// authenticated batches over HTTP and raw lines over TCP and writes every
// record into a local ultralog.Logger.
package collector

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/lixenwraith/ultralog"
	"github.com/lixenwraith/ultralog/compat"
	"github.com/lixenwraith/ultralog/formatter"
	"github.com/lixenwraith/ultralog/metrics"
	"github.com/lixenwraith/ultralog/remote"
)

const (
	defaultMaxBodySize = 4 << 20
	defaultTimeout     = 10 * time.Second
)

// Config configures a collector Server
type Config struct {
	Token       string               // Bearer token required on /log
	Sink        *ultralog.Logger     // Receives every accepted record
	Registry    *prometheus.Registry // nil creates a private registry
	MaxBodySize int
	Timeout     time.Duration // Read and write timeout per connection
}

// Record is one inbound record. Level names are case insensitive.
type Record struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Line    string `json:"line,omitempty"`
}

// Server is the HTTP collector
type Server struct {
	cfg            Config
	sink           *ultralog.Logger
	metrics        *metrics.ServerMetrics
	metricsHandler fasthttp.RequestHandler
	srv            *fasthttp.Server
}

// New validates cfg and builds the server and its metrics
func New(cfg Config) (*Server, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("collector: token cannot be empty")
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("collector: sink logger cannot be nil")
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaultMaxBodySize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	if err := reg.Register(metrics.NewLoggerCollector(cfg.Sink, cfg.Sink.GetConfig().Name)); err != nil {
		return nil, fmt.Errorf("collector: register sink metrics: %w", err)
	}

	s := &Server{
		cfg:            cfg,
		sink:           cfg.Sink,
		metrics:        metrics.NewServerMetrics(reg),
		metricsHandler: fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	}
	s.srv = &fasthttp.Server{
		Handler:            s.Handler,
		Name:               "ultralog-collector",
		Logger:             compat.NewFastHTTPAdapter(cfg.Sink),
		ReadTimeout:        cfg.Timeout,
		WriteTimeout:       cfg.Timeout,
		MaxRequestBodySize: cfg.MaxBodySize,
	}
	return s, nil
}

// Metrics returns the collector counters
func (s *Server) Metrics() *metrics.ServerMetrics {
	return s.metrics
}

// Serve accepts connections on ln until Shutdown
func (s *Server) Serve(ln net.Listener) error {
	return s.srv.Serve(ln)
}

// ListenAndServe serves on a TCP address
func (s *Server) ListenAndServe(addr string) error {
	return s.srv.ListenAndServe(addr)
}

// Shutdown stops accepting and waits for open requests until ctx ends
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.ShutdownWithContext(ctx)
}

// Handler routes collector requests
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/health":
		if !ctx.IsGet() {
			ctx.Error("method not allowed", fasthttp.StatusMethodNotAllowed)
			return
		}
		writeJSON(ctx, fasthttp.StatusOK, map[string]any{"status": "healthy"})

	case remote.LogPath:
		if !ctx.IsPost() {
			ctx.Error("method not allowed", fasthttp.StatusMethodNotAllowed)
			return
		}
		s.handleLog(ctx)

	case "/metrics":
		s.metricsHandler(ctx)

	default:
		writeJSON(ctx, fasthttp.StatusNotFound, map[string]any{"detail": "Not Found"})
	}
}

// handleLog authenticates and writes a batch or a single record
func (s *Server) handleLog(ctx *fasthttp.RequestCtx) {
	if !s.authorized(ctx.Request.Header.Peek(fasthttp.HeaderAuthorization)) {
		s.metrics.Rejected.Inc()
		s.respond(ctx, fasthttp.StatusForbidden, map[string]any{"detail": "Invalid authentication credentials"})
		return
	}

	records, err := DecodeRecords(ctx.PostBody())
	if err != nil {
		s.respond(ctx, fasthttp.StatusUnprocessableEntity, map[string]any{"detail": err.Error()})
		return
	}

	for _, r := range records {
		level := ParseLevel(r.Level)
		s.sink.Log(level, r.Message)
		s.metrics.Received.WithLabelValues(formatter.LevelString(level), "http").Inc()
	}
	s.respond(ctx, fasthttp.StatusOK, map[string]any{"status": "success", "accepted": len(records)})
}

func (s *Server) authorized(header []byte) bool {
	token, ok := bytes.CutPrefix(header, []byte("Bearer "))
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare(bytes.TrimSpace(token), []byte(s.cfg.Token)) == 1
}

func (s *Server) respond(ctx *fasthttp.RequestCtx, code int, body map[string]any) {
	s.metrics.Requests.WithLabelValues("http", strconv.Itoa(code)).Inc()
	writeJSON(ctx, code, body)
}

func writeJSON(ctx *fasthttp.RequestCtx, code int, body map[string]any) {
	ctx.SetStatusCode(code)
	ctx.SetContentType("application/json")
	_ = json.NewEncoder(ctx).Encode(body)
}

// DecodeRecords accepts a JSON array of records or a single record object
func DecodeRecords(body []byte) ([]Record, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("empty body")
	}

	if body[0] == '[' {
		var records []Record
		if err := json.Unmarshal(body, &records); err != nil {
			return nil, fmt.Errorf("invalid batch: %w", err)
		}
		return records, nil
	}

	var r Record
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("invalid record: %w", err)
	}
	return []Record{r}, nil
}

// ParseLevel maps a level name to its value, anything unknown is INFO
func ParseLevel(name string) int64 {
	if strings.TrimSpace(name) == "" {
		return ultralog.LevelInfo
	}
	level, err := ultralog.Level(name)
	if err != nil {
		return ultralog.LevelInfo
	}
	return level
}
