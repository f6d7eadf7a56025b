package collector

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/ultralog/metrics"
)

func TestSessionFeed(t *testing.T) {
	t.Run("auth then records", func(t *testing.T) {
		s := &session{token: []byte(testToken)}

		records, reply, closeConn := s.feed([]byte("AUTH " + testToken + "\r\nfirst\nsec"))
		assert.Equal(t, []string{"first"}, records)
		assert.Equal(t, replyOK, reply)
		assert.False(t, closeConn)

		records, reply, closeConn = s.feed([]byte("ond\n\nthird\n"))
		assert.Equal(t, []string{"second", "third"}, records)
		assert.Nil(t, reply)
		assert.False(t, closeConn)
	})

	t.Run("partial auth line waits", func(t *testing.T) {
		s := &session{token: []byte(testToken)}
		records, reply, closeConn := s.feed([]byte("AUTH test"))
		assert.Empty(t, records)
		assert.Nil(t, reply)
		assert.False(t, closeConn)

		_, reply, closeConn = s.feed([]byte("-token\n"))
		assert.Equal(t, replyOK, reply)
		assert.False(t, closeConn)
	})

	t.Run("bad token closes", func(t *testing.T) {
		s := &session{token: []byte(testToken)}
		records, reply, closeConn := s.feed([]byte("AUTH wrong\nsneaky\n"))
		assert.Empty(t, records)
		assert.Equal(t, replyDenied, reply)
		assert.True(t, closeConn)
	})

	t.Run("record before auth closes", func(t *testing.T) {
		s := &session{token: []byte(testToken)}
		_, reply, closeConn := s.feed([]byte("hello\n"))
		assert.Equal(t, replyDenied, reply)
		assert.True(t, closeConn)
	})

	t.Run("overlong line closes", func(t *testing.T) {
		s := &session{token: []byte(testToken), authed: true}
		_, reply, closeConn := s.feed([]byte(strings.Repeat("x", maxLineLength+1)))
		assert.Equal(t, replyLong, reply)
		assert.True(t, closeConn)
	})
}

func TestNewTCPIngestValidation(t *testing.T) {
	sink, _ := newSink(t)
	m := metrics.NewServerMetrics(prometheus.NewRegistry())

	_, err := NewTCPIngest("", sink, m)
	assert.Error(t, err)
	_, err = NewTCPIngest(testToken, nil, m)
	assert.Error(t, err)
	_, err = NewTCPIngest(testToken, sink, nil)
	assert.Error(t, err)
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestTCPIngest(t *testing.T) {
	sink, path := newSink(t)
	m := metrics.NewServerMetrics(prometheus.NewRegistry())

	ingest, err := NewTCPIngest(testToken, sink, m)
	require.NoError(t, err)

	addr := freeAddr(t)
	runErr := make(chan error, 1)
	go func() { runErr <- ingest.Run(addr) }()

	select {
	case <-ingest.Booted():
	case err := <-runErr:
		t.Fatalf("ingest did not start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("ingest did not boot")
	}

	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	_, err = conn.Write([]byte("AUTH " + testToken + "\n"))
	require.NoError(t, err)
	reply, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "OK\n", reply)

	_, err = conn.Write([]byte("line one\nline two\n"))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.Received.WithLabelValues("INFO", "tcp")) == 2
	}, 5*time.Second, 10*time.Millisecond)
	// gnet's own startup messages share the sink
	lines := sinkLines(t, sink, path)
	assert.Contains(t, lines, "collector - INFO - line one")
	assert.Contains(t, lines, "collector - INFO - line two")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ingest.Stop(ctx))
	<-runErr
}
