package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// LogEntry describes one outbound request for the pluggable log hook.
type LogEntry struct {
	Method     string
	URL        string
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Config controls the shared provider transport.
type Config struct {
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	DefaultHeaders map[string]string
	LogHook        func(LogEntry)
}

// Client is the HTTP transport shared by all provider adapters. It
// separates transport failures (error return, no response) from
// provider responses (Response with any status code); adapters treat
// non-2xx responses as provider rejections.
type Client struct {
	http    *http.Client
	headers map[string]string
	hook    func(LogEntry)
}

func New(cfg Config) *Client {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
		TLSHandshakeTimeout: cfg.ConnectTimeout,
		MaxIdleConnsPerHost: 4,
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		},
		headers: cfg.DefaultHeaders,
		hook:    cfg.LogHook,
	}
}

// Response is a fully-read provider response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Success reports a 2xx status.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

// RequestOption mutates a request before it is sent.
type RequestOption func(*http.Request)

func WithBasicAuth(username, password string) RequestOption {
	return func(req *http.Request) {
		req.SetBasicAuth(username, password)
	}
}

func WithBearer(token string) RequestOption {
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func WithHeader(key, value string) RequestOption {
	return func(req *http.Request) {
		req.Header.Set(key, value)
	}
}

// Do sends the request. A non-nil error means a transport failure: no
// response was received. Any received response is returned with its
// body fully read so callers can classify status themselves.
func (c *Client) Do(ctx context.Context, method, rawURL string, body io.Reader, opts ...RequestOption) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for _, opt := range opts {
		opt(req)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log(LogEntry{Method: method, URL: rawURL, Duration: time.Since(start), Err: err})
		return nil, fmt.Errorf("transport failure: %w", err)
	}
	defer resp.Body.Close()

	// Cap provider response bodies; none of the supported APIs return
	// payloads anywhere near this size.
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.log(LogEntry{Method: method, URL: rawURL, StatusCode: resp.StatusCode, Duration: time.Since(start), Err: err})
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.log(LogEntry{Method: method, URL: rawURL, StatusCode: resp.StatusCode, Duration: time.Since(start)})

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// PostForm sends a form-encoded POST.
func (c *Client) PostForm(ctx context.Context, rawURL string, values url.Values, opts ...RequestOption) (*Response, error) {
	opts = append([]RequestOption{WithHeader("Content-Type", "application/x-www-form-urlencoded")}, opts...)
	return c.Do(ctx, http.MethodPost, rawURL, strings.NewReader(values.Encode()), opts...)
}

// PostJSON sends a JSON POST.
func (c *Client) PostJSON(ctx context.Context, rawURL string, payload interface{}, opts ...RequestOption) (*Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	opts = append([]RequestOption{WithHeader("Content-Type", "application/json")}, opts...)
	return c.Do(ctx, http.MethodPost, rawURL, bytes.NewReader(data), opts...)
}

// PostRaw sends an arbitrary body POST; headers come solely from opts.
func (c *Client) PostRaw(ctx context.Context, rawURL string, body []byte, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPost, rawURL, bytes.NewReader(body), opts...)
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, rawURL string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodGet, rawURL, nil, opts...)
}

func (c *Client) log(entry LogEntry) {
	if c.hook != nil {
		c.hook(entry)
	}
}
