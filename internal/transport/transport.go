// Package transport is the HTTP capability both R2 clients depend on.
// A Doer returns every HTTP status as a Response and fails only when the
// exchange itself could not be completed.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultTimeout = 30 * time.Second

// Request is a fully built outbound request
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is the complete result of an exchange
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Doer performs one HTTP exchange
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// HTTPClient implements Doer over net/http
type HTTPClient struct {
	client *http.Client
}

// Options configures an HTTPClient
type Options struct {
	Timeout time.Duration
	// Wrap decorates the base round tripper, e.g. with metrics.
	Wrap func(http.RoundTripper) http.RoundTripper
}

// NewHTTPClient builds an HTTPClient. A zero timeout uses 30s.
func NewHTTPClient(opts Options) *HTTPClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var rt http.RoundTripper = http.DefaultTransport.(*http.Transport).Clone()
	if opts.Wrap != nil {
		rt = opts.Wrap(rt)
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout:   timeout,
			Transport: rt,
		},
	}
}

// Do sends req and reads the full response body.
func (c *HTTPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, values := range req.Header {
		if http.CanonicalHeaderKey(k) == "Host" {
			if len(values) > 0 {
				httpReq.Host = values[0]
			}
			continue
		}
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	if len(req.Body) > 0 {
		httpReq.ContentLength = int64(len(req.Body))
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	log.Debug().
		Str("method", req.Method).
		Str("host", httpReq.URL.Host).
		Str("path", httpReq.URL.Path).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Dur("latency", time.Since(start)).
		Msg("r2 request completed")

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   data,
	}, nil
}

var _ Doer = (*HTTPClient)(nil)

// DoerFunc adapts a function to Doer
type DoerFunc func(ctx context.Context, req *Request) (*Response, error)

// Do calls f.
func (f DoerFunc) Do(ctx context.Context, req *Request) (*Response, error) { return f(ctx, req) }
