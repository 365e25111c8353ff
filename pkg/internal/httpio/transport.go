// Package httpio is the low-level HTTP transport wrapper under pkg/client.
// It knows how to build requests, pool connections, and read bodies; it does
// not know about the Messages API's error envelope or retry policy — that
// lives in pkg/client, which composes httpio with pkg/internal/ratectl.
//
// Grounded on pkg/internal/http/client.go (Client, Config, Request,
// Response, DoStream), extended per spec.md §5's explicit request for a
// "configurable per-host idle cap and idle timeout, TCP keepalive": the
// teacher's http.Transport has a fixed pool but a bare net.Dialer (default,
// un-configured keepalive); this version sets both through Config.
package httpio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config configures the pooled transport.
type Config struct {
	BaseURL             string
	Headers             map[string]string
	Timeout             time.Duration // per-request timeout; default 60s (spec.md §5)
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	KeepAlive           time.Duration
	HTTPClient          *http.Client // overrides pooling knobs entirely when set
}

// Client performs HTTP requests against a fixed base URL with a shared
// pooled transport.
type Client struct {
	http    *http.Client
	baseURL string
	headers map[string]string
}

func New(cfg Config) *Client {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		maxIdle := cfg.MaxIdleConns
		if maxIdle <= 0 {
			maxIdle = 100
		}
		maxIdlePerHost := cfg.MaxIdleConnsPerHost
		if maxIdlePerHost <= 0 {
			maxIdlePerHost = 10
		}
		idleTimeout := cfg.IdleConnTimeout
		if idleTimeout <= 0 {
			idleTimeout = 90 * time.Second
		}
		keepAlive := cfg.KeepAlive
		if keepAlive <= 0 {
			keepAlive = 30 * time.Second
		}
		dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: keepAlive}
		client = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext:         dialer.DialContext,
				MaxIdleConns:        maxIdle,
				MaxIdleConnsPerHost: maxIdlePerHost,
				IdleConnTimeout:     idleTimeout,
			},
		}
	}

	return &Client{
		http:    client,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		headers: cfg.Headers,
	}
}

// Request is one HTTP call. Path is appended verbatim to the base URL (the
// caller is responsible for the leading "/v1/..." per spec.md §4.1).
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    []byte // already-serialized JSON, or nil
	Query   url.Values
}

type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

func (c *Client) buildURL(req Request) string {
	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}

func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.buildURL(req), body)
	if err != nil {
		return nil, fmt.Errorf("httpio: build request: %w", err)
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

// Do performs a buffered request: the full response body is read and the
// connection returned to the pool before Do returns.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpio: read response body: %w", err)
	}

	return &Response{StatusCode: httpResp.StatusCode, Headers: httpResp.Header, Body: body}, nil
}

// DoStream performs a request and returns the live *http.Response for the
// caller to read incrementally and close — used only by the SSE path.
// Unlike Do, DoStream does not read the body: the caller owns it.
func (c *Client) DoStream(ctx context.Context, req Request) (*http.Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.http.Do(httpReq)
}
