package collector

import (
	"bytes"
	"context"
	"crypto/subtle"
	"fmt"
	"sync"

	"github.com/panjf2000/gnet/v2"

	"github.com/lixenwraith/ultralog"
	"github.com/lixenwraith/ultralog/compat"
	"github.com/lixenwraith/ultralog/metrics"
)

// maxLineLength bounds a pending TCP line before the connection is dropped
const maxLineLength = 64 << 10

var (
	replyOK     = []byte("OK\n")
	replyDenied = []byte("ERR authentication required\n")
	replyLong   = []byte("ERR line too long\n")
)

// session is the per-connection line protocol state. The first line must be
// "AUTH <token>", every later line is a record.
type session struct {
	token   []byte
	authed  bool
	pending []byte
}

// feed consumes data and returns complete records, an optional reply and
// whether the connection must close
func (s *session) feed(data []byte) (records []string, reply []byte, closeConn bool) {
	s.pending = append(s.pending, data...)

	for {
		i := bytes.IndexByte(s.pending, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSuffix(s.pending[:i], []byte("\r"))
		s.pending = s.pending[i+1:]

		if !s.authed {
			token, ok := bytes.CutPrefix(line, []byte("AUTH "))
			if !ok || subtle.ConstantTimeCompare(bytes.TrimSpace(token), s.token) != 1 {
				return records, replyDenied, true
			}
			s.authed = true
			reply = replyOK
			continue
		}
		if len(line) > 0 {
			records = append(records, string(line))
		}
	}

	if len(s.pending) > maxLineLength {
		return records, replyLong, true
	}
	// Release consumed prefix
	if len(s.pending) == 0 {
		s.pending = nil
	}
	return records, reply, false
}

// TCPIngest accepts newline-delimited records over TCP with gnet
type TCPIngest struct {
	gnet.BuiltinEventEngine

	token   []byte
	sink    *ultralog.Logger
	metrics *metrics.ServerMetrics

	mu     sync.Mutex
	engine gnet.Engine
	booted chan struct{}
}

// NewTCPIngest creates an ingest writing into sink. m may be shared with the
// HTTP Server.
func NewTCPIngest(token string, sink *ultralog.Logger, m *metrics.ServerMetrics) (*TCPIngest, error) {
	if token == "" {
		return nil, fmt.Errorf("collector: token cannot be empty")
	}
	if sink == nil || m == nil {
		return nil, fmt.Errorf("collector: sink and metrics are required")
	}
	return &TCPIngest{
		token:   []byte(token),
		sink:    sink,
		metrics: m,
		booted:  make(chan struct{}),
	}, nil
}

// Run blocks serving addr ("host:port") until Stop
func (t *TCPIngest) Run(addr string) error {
	return gnet.Run(t, "tcp://"+addr,
		gnet.WithMulticore(true),
		gnet.WithReusePort(true),
		gnet.WithLogger(compat.NewGnetAdapter(t.sink)),
	)
}

// Booted is closed once the engine is accepting connections
func (t *TCPIngest) Booted() <-chan struct{} {
	return t.booted
}

// Stop shuts the engine down
func (t *TCPIngest) Stop(ctx context.Context) error {
	select {
	case <-t.booted:
	case <-ctx.Done():
		return ctx.Err()
	}
	t.mu.Lock()
	eng := t.engine
	t.mu.Unlock()
	return eng.Stop(ctx)
}

// OnBoot records the engine for Stop
func (t *TCPIngest) OnBoot(eng gnet.Engine) gnet.Action {
	t.mu.Lock()
	t.engine = eng
	t.mu.Unlock()
	close(t.booted)
	return gnet.None
}

// OnOpen attaches a fresh session
func (t *TCPIngest) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	c.SetContext(&session{token: t.token})
	return nil, gnet.None
}

// OnTraffic writes every complete line at INFO
func (t *TCPIngest) OnTraffic(c gnet.Conn) gnet.Action {
	s, ok := c.Context().(*session)
	if !ok {
		return gnet.Close
	}

	data, err := c.Next(-1)
	if err != nil {
		return gnet.Close
	}

	records, reply, closeConn := s.feed(data)
	for _, r := range records {
		t.sink.Log(ultralog.LevelInfo, r)
	}
	if n := len(records); n > 0 {
		t.metrics.Received.WithLabelValues("INFO", "tcp").Add(float64(n))
	}

	if reply != nil {
		_, _ = c.Write(reply)
	}
	if closeConn {
		if bytes.Equal(reply, replyDenied) {
			t.metrics.Rejected.Inc()
			t.metrics.Requests.WithLabelValues("tcp", "403").Inc()
		}
		return gnet.Close
	}
	return gnet.None
}
