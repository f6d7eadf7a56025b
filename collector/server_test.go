package collector

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/lixenwraith/ultralog"
	"github.com/lixenwraith/ultralog/remote"
)

const testToken = "test-token"

// newSink creates a debug-level local logger without timestamps
func newSink(t *testing.T) (*ultralog.Logger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "collector.log")
	sink, err := ultralog.NewBuilder().
		Name("collector").
		File(path).
		WithTime(false).
		Stderr(&strings.Builder{}).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })
	return sink, path
}

func newTestServer(t *testing.T) (*Server, *ultralog.Logger, string) {
	t.Helper()
	sink, path := newSink(t)
	s, err := New(Config{Token: testToken, Sink: sink, Registry: prometheus.NewRegistry()})
	require.NoError(t, err)
	return s, sink, path
}

func sinkLines(t *testing.T, sink *ultralog.Logger, path string) []string {
	t.Helper()
	require.NoError(t, sink.Flush())
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	if len(content) == 0 {
		return nil
	}
	return strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
}

func doRequest(s *Server, method, path, token, body string) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(path)
	if token != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+token)
	}
	req.SetBodyString(body)

	var ctx fasthttp.RequestCtx
	ctx.Init(&req, nil, nil)
	s.Handler(&ctx)
	return &ctx
}

func TestNewValidation(t *testing.T) {
	sink, _ := newSink(t)

	_, err := New(Config{Sink: sink})
	assert.ErrorContains(t, err, "token cannot be empty")

	_, err = New(Config{Token: testToken})
	assert.ErrorContains(t, err, "sink logger cannot be nil")
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)

	ctx := doRequest(s, fasthttp.MethodGet, "/health", "", "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"status":"healthy"}`, string(ctx.Response.Body()))

	ctx = doRequest(s, fasthttp.MethodPost, "/health", "", "")
	assert.Equal(t, fasthttp.StatusMethodNotAllowed, ctx.Response.StatusCode())
}

func TestLogEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		body     string
		wantCode int
		wantBody string
		wantLine []string
	}{
		{
			name:     "missing token",
			body:     `{"message":"test","level":"info"}`,
			wantCode: fasthttp.StatusForbidden,
			wantBody: `{"detail":"Invalid authentication credentials"}`,
		},
		{
			name:     "wrong token",
			token:    "nope",
			body:     `{"message":"test","level":"info"}`,
			wantCode: fasthttp.StatusForbidden,
			wantBody: `{"detail":"Invalid authentication credentials"}`,
		},
		{
			name:     "single record",
			token:    testToken,
			body:     `{"message":"test message","level":"warning"}`,
			wantCode: fasthttp.StatusOK,
			wantBody: `{"status":"success","accepted":1}`,
			wantLine: []string{"collector - WARNING - test message"},
		},
		{
			name:     "invalid level defaults to info",
			token:    testToken,
			body:     `{"message":"odd","level":"invalid"}`,
			wantCode: fasthttp.StatusOK,
			wantBody: `{"status":"success","accepted":1}`,
			wantLine: []string{"collector - INFO - odd"},
		},
		{
			name:     "missing message",
			token:    testToken,
			body:     `{"level":"error"}`,
			wantCode: fasthttp.StatusOK,
			wantBody: `{"status":"success","accepted":1}`,
			wantLine: []string{"collector - ERROR - "},
		},
		{
			name:     "batch",
			token:    testToken,
			body:     `[{"level":"INFO","message":"a","line":"x"},{"level":"CRITICAL","message":"b"}]`,
			wantCode: fasthttp.StatusOK,
			wantBody: `{"status":"success","accepted":2}`,
			wantLine: []string{"collector - INFO - a", "collector - CRITICAL - b"},
		},
		{
			name:     "malformed",
			token:    testToken,
			body:     `{"level":`,
			wantCode: fasthttp.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, sink, path := newTestServer(t)

			ctx := doRequest(s, fasthttp.MethodPost, "/log", tt.token, tt.body)
			assert.Equal(t, tt.wantCode, ctx.Response.StatusCode())
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, string(ctx.Response.Body()))
			}
			assert.Equal(t, tt.wantLine, sinkLines(t, sink, path))
		})
	}
}

func TestLogEndpointCounters(t *testing.T) {
	s, _, _ := newTestServer(t)

	doRequest(s, fasthttp.MethodPost, "/log", "", `{}`)
	doRequest(s, fasthttp.MethodPost, "/log", testToken, `[{"level":"info","message":"a"},{"level":"info","message":"b"}]`)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().Rejected))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.Metrics().Received.WithLabelValues("INFO", "http")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().Requests.WithLabelValues("http", "403")))

	ctx := doRequest(s, fasthttp.MethodGet, "/metrics", "", "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	body := string(ctx.Response.Body())
	assert.Contains(t, body, `ultralog_collector_records_received_total{level="INFO",transport="http"} 2`)
	assert.Contains(t, body, `ultralog_logger_records_processed_total{logger="collector"} 2`)
}

func TestUnknownPath(t *testing.T) {
	s, _, _ := newTestServer(t)
	ctx := doRequest(s, fasthttp.MethodGet, "/nope", "", "")
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
}

func TestDecodeRecords(t *testing.T) {
	records, err := DecodeRecords(remote.EncodeBatch(remote.Batch{Entries: []remote.Entry{
		{Level: "INFO", Message: "quoted \"msg\"", Line: []byte("svc - INFO - quoted \"msg\"\n")},
	}}))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, `quoted "msg"`, records[0].Message)
	assert.Equal(t, `svc - INFO - quoted "msg"`, records[0].Line)

	_, err = DecodeRecords([]byte("  "))
	assert.ErrorContains(t, err, "empty body")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, ultralog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, ultralog.LevelWarning, ParseLevel("WARN"))
	assert.Equal(t, ultralog.LevelInfo, ParseLevel(""))
	assert.Equal(t, ultralog.LevelInfo, ParseLevel("verbose"))
}

// TestRemoteLoggerToCollector runs the full remote path against an in-memory collector
func TestRemoteLoggerToCollector(t *testing.T) {
	s, sink, path := newTestServer(t)

	ln := fasthttputil.NewInmemoryListener()
	serveErr := make(chan error, 1)
	go func() { serveErr <- s.Serve(ln) }()

	sender, err := remote.NewHTTPSender(remote.HTTPOptions{
		ServerURL: "http://collector.test",
		Token:     testToken,
		Timeout:   time.Second,
		Dial:      ln.Dial,
	})
	require.NoError(t, err)

	client, err := ultralog.NewBuilder().
		Name("client").
		Remote("http://collector.test", testToken).
		Batching(3, 20).
		Sender(sender).
		Stderr(&strings.Builder{}).
		Build()
	require.NoError(t, err)

	for i := 0; i < 7; i++ {
		client.Info("forwarded", i)
	}
	client.Error("last")
	require.NoError(t, client.Close())

	stats := client.Stats()
	assert.Equal(t, uint64(8), stats.RecordsSent)
	assert.Equal(t, uint64(0), stats.Dropped())

	lines := sinkLines(t, sink, path)
	require.Len(t, lines, 8)
	assert.Equal(t, "collector - INFO - forwarded 0", lines[0])
	assert.Equal(t, "collector - ERROR - last", lines[7])

	require.NoError(t, s.Shutdown(context.Background()))
	<-serveErr
}
