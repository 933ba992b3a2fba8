// Package transport issues outbound HTTP requests for webhook deliveries and
// storefront API calls. All clients are instrumented with OpenTelemetry.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 10 * time.Second

// maxResponseBody caps how much of a receiver's response is read.
const maxResponseBody = 64 << 10

// Request is a POST to an arbitrary URL.
type Request struct {
	URL     string
	Headers http.Header
	Body    []byte
}

// Response is what the receiver sent back. Body is truncated to 64 KiB.
type Response struct {
	StatusCode int
	Body       []byte
}

// Poster delivers a request and reports the receiver's response. A non-nil
// error means no HTTP response was obtained (DNS, refused, timeout, TLS).
type Poster interface {
	Post(ctx context.Context, req Request) (*Response, error)
}

// NewHTTPClient returns an http.Client with an OpenTelemetry-instrumented
// transport and the given overall timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// HTTPPoster implements Poster over net/http.
type HTTPPoster struct {
	client *http.Client
}

// NewHTTPPoster returns a Poster using a copy of client that never follows
// redirects. A nil client gets NewHTTPClient(DefaultTimeout).
func NewHTTPPoster(client *http.Client) *HTTPPoster {
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}
	c := *client
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &HTTPPoster{client: &c}
}

// Post sends req.Body verbatim. A 3xx is returned as the response itself, so
// the payload and signature never reach a redirect target.
func (p *HTTPPoster) Post(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for k, vs := range req.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
