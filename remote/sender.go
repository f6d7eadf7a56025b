package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/lixenwraith/ultralog/sanitizer"
)

// HeaderBatchID carries the batch identifier on every delivery request
const HeaderBatchID = "X-Ultralog-Batch"

// LogPath is the collector endpoint appended to the server URL
const LogPath = "/log"

// ErrDelivery classifies every failed delivery attempt
var ErrDelivery = errors.New("remote: delivery failed")

// StatusError is a delivery failure caused by a non-2xx response
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote: unexpected status %d", e.Code)
	}
	return fmt.Sprintf("remote: unexpected status %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrDelivery
}

// Batch is a group of entries delivered in one request
type Batch struct {
	ID      string
	Entries []Entry
}

// Sender delivers one batch. Implementations must honor ctx and bound every
// call in time.
type Sender interface {
	Send(ctx context.Context, b Batch) error
}

// HTTPOptions configures an HTTPSender
type HTTPOptions struct {
	ServerURL string
	Token     string
	Timeout   time.Duration
	// Dial overrides the connection dialer, nil uses TCP
	Dial func(addr string) (net.Conn, error)
}

// HTTPSender posts batches as JSON with a bearer token using fasthttp
type HTTPSender struct {
	client  *fasthttp.Client
	url     string
	auth    string
	timeout time.Duration
}

// NewHTTPSender creates a sender for "<ServerURL>/log"
func NewHTTPSender(opts HTTPOptions) (*HTTPSender, error) {
	if opts.ServerURL == "" {
		return nil, fmt.Errorf("remote: empty server url")
	}
	if !strings.HasPrefix(opts.ServerURL, "http://") && !strings.HasPrefix(opts.ServerURL, "https://") {
		return nil, fmt.Errorf("remote: server url must start with http:// or https://: %s", opts.ServerURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}

	client := &fasthttp.Client{
		Name:                "ultralog",
		ReadTimeout:         opts.Timeout,
		WriteTimeout:        opts.Timeout,
		MaxIdleConnDuration: 30 * time.Second,
	}
	if opts.Dial != nil {
		client.Dial = opts.Dial
	}

	return &HTTPSender{
		client:  client,
		url:     strings.TrimRight(opts.ServerURL, "/") + LogPath,
		auth:    "Bearer " + opts.Token,
		timeout: opts.Timeout,
	}, nil
}

// URL returns the delivery endpoint
func (s *HTTPSender) URL() string {
	return s.url
}

// Send posts b and succeeds on any 2xx response
func (s *HTTPSender) Send(ctx context.Context, b Batch) error {
	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	if timeout <= 0 {
		return fmt.Errorf("%w: %w", ErrDelivery, context.DeadlineExceeded)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set(fasthttp.HeaderAuthorization, s.auth)
	req.Header.Set(HeaderBatchID, b.ID)
	req.SetBodyRaw(EncodeBatch(b))

	if err := s.client.DoTimeout(req, resp, timeout); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	code := resp.StatusCode()
	if code < 200 || code > 299 {
		body := resp.Body()
		if len(body) > 256 {
			body = body[:256]
		}
		return &StatusError{Code: code, Body: string(body)}
	}
	return nil
}

// EncodeBatch renders b as a JSON array of {"level","message","line"} objects
func EncodeBatch(b Batch) []byte {
	size := 2
	for _, e := range b.Entries {
		size += len(e.Level) + len(e.Message) + len(e.Line) + 40
	}

	buf := make([]byte, 0, size)
	buf = append(buf, '[')
	for i, e := range b.Entries {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, `{"level":`...)
		buf = sanitizer.AppendJSONString(buf, e.Level)
		buf = append(buf, `,"message":`...)
		buf = sanitizer.AppendJSONString(buf, e.Message)
		buf = append(buf, `,"line":`...)
		buf = sanitizer.AppendJSONString(buf, strings.TrimSuffix(string(e.Line), "\n"))
		buf = append(buf, '}')
	}
	return append(buf, ']')
}
