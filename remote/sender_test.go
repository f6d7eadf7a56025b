package remote

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

type capturedRequest struct {
	path    string
	auth    string
	batchID string
	body    []byte
}

// startCollector serves handler on an in-memory listener and returns a
// sender dialing it
func startCollector(t *testing.T, status func(call int32) int) (*HTTPSender, *[]capturedRequest, *atomic.Int32) {
	t.Helper()

	var mu sync.Mutex
	var captured []capturedRequest
	var calls atomic.Int32

	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{
		Handler: func(ctx *fasthttp.RequestCtx) {
			call := calls.Add(1)
			mu.Lock()
			captured = append(captured, capturedRequest{
				path:    string(ctx.Path()),
				auth:    string(ctx.Request.Header.Peek(fasthttp.HeaderAuthorization)),
				batchID: string(ctx.Request.Header.Peek(HeaderBatchID)),
				body:    append([]byte(nil), ctx.PostBody()...),
			})
			mu.Unlock()
			ctx.SetStatusCode(status(call))
		},
	}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	sender, err := NewHTTPSender(HTTPOptions{
		ServerURL: "http://collector.test/",
		Token:     "secret",
		Timeout:   time.Second,
		Dial:      func(string) (net.Conn, error) { return ln.Dial() },
	})
	require.NoError(t, err)
	return sender, &captured, &calls
}

func TestHTTPSenderDelivers(t *testing.T) {
	sender, captured, _ := startCollector(t, func(int32) int { return fasthttp.StatusOK })
	assert.Equal(t, "http://collector.test/log", sender.URL())

	b := Batch{ID: "batch-1", Entries: []Entry{entry(0), entry(1)}}
	require.NoError(t, sender.Send(context.Background(), b))

	require.Len(t, *captured, 1)
	req := (*captured)[0]
	assert.Equal(t, "/log", req.path)
	assert.Equal(t, "Bearer secret", req.auth)
	assert.Equal(t, "batch-1", req.batchID)

	var decoded []map[string]string
	require.NoError(t, json.Unmarshal(req.body, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "INFO", decoded[0]["level"])
	assert.Equal(t, "msg-0", decoded[0]["message"])
	assert.Equal(t, "svc - INFO - msg-0", decoded[0]["line"])
}

func TestHTTPSenderStatusHandling(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", fasthttp.StatusOK, false},
		{"accepted", fasthttp.StatusAccepted, false},
		{"no content", fasthttp.StatusNoContent, false},
		{"unauthorized", fasthttp.StatusUnauthorized, true},
		{"forbidden", fasthttp.StatusForbidden, true},
		{"server error", fasthttp.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, _, _ := startCollector(t, func(int32) int { return tt.status })
			err := sender.Send(context.Background(), Batch{ID: "x", Entries: []Entry{entry(0)}})
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDelivery)
			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.Code)
		})
	}
}

func TestHTTPSenderExpiredContext(t *testing.T) {
	sender, _, calls := startCollector(t, func(int32) int { return fasthttp.StatusOK })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sender.Send(ctx, Batch{ID: "x"})
	assert.ErrorIs(t, err, ErrDelivery)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), calls.Load())
}

func TestNewHTTPSenderValidation(t *testing.T) {
	_, err := NewHTTPSender(HTTPOptions{})
	assert.Error(t, err)

	_, err = NewHTTPSender(HTTPOptions{ServerURL: "collector:8080"})
	assert.Error(t, err)
}

// TestRemoteFailureScenario drives a dispatcher against a peer that always
// answers 500 with a 3-attempt budget
func TestRemoteFailureScenario(t *testing.T) {
	sender, _, calls := startCollector(t, func(int32) int { return fasthttp.StatusInternalServerError })

	cfg := testConfig()
	q := NewQueue(100, cfg.BatchSize)
	d := NewDispatcher(q, sender, cfg)
	d.Start()

	for i := 0; i < cfg.BatchSize; i++ {
		require.True(t, q.Enqueue(entry(i)))
	}

	require.Eventually(t, func() bool {
		return d.Stats().BatchesDropped == 1
	}, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, d.Close(time.Second))

	stats := d.Stats()
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, uint64(cfg.BatchSize), stats.RecordsDropped)
	assert.Equal(t, uint64(0), stats.BatchesSent)
}

func TestEncodeBatch(t *testing.T) {
	b := Batch{Entries: []Entry{
		{Level: "ERROR", Message: `quote " here`, Line: []byte("svc - ERROR - quote \" here\n")},
	}}

	var decoded []map[string]string
	require.NoError(t, json.Unmarshal(EncodeBatch(b), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, `quote " here`, decoded[0]["message"])
	assert.Equal(t, `svc - ERROR - quote " here`, decoded[0]["line"])

	assert.Equal(t, "[]", string(EncodeBatch(Batch{})))
}
