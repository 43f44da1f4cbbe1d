// Package restclient provides the HTTP client used by the API test suites: a
// fluent request builder on top of net/http with automatic retries for
// transport errors and server-side failures, plus response helpers for
// JSON-path extraction and comparison.
package restclient

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/verax-qa/verax/config"
	"github.com/verax-qa/verax/framework"
)

// RetryPolicy controls how Send retries a failed request. A request is
// retried after a transport error or a response with status 500 or above;
// any other response, including 4xx, is returned immediately.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt, so a
	// request is sent at most MaxRetries+1 times.
	MaxRetries int

	// InitialBackoff is the delay before the first retry. Each subsequent
	// delay doubles, up to MaxBackoff.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between attempts. Zero means no cap.
	MaxBackoff time.Duration
}

// backoffFor returns the delay before retry attempt n (0-based).
func (p RetryPolicy) backoffFor(attempt int) time.Duration {
	d := p.InitialBackoff
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// Client is a reusable HTTP client bound to a base URL. It is safe for
// concurrent use. Create one with New or FromConfig.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      RetryPolicy
	logs       *zap.SugaredLogger
	debug      framework.Logger
	logBodies  bool
	headers    http.Header
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithLogger sets the run-level logger for request/response summaries.
func WithLogger(logs *zap.SugaredLogger) Option {
	return func(c *Client) { c.logs = logs }
}

// WithDebugLogger sets the per-test debug logger that captures full traffic.
func WithDebugLogger(debug framework.Logger) Option {
	return func(c *Client) { c.debug = debug }
}

// WithBodyLogging enables logging of request and response bodies.
func WithBodyLogging(enabled bool) Option {
	return func(c *Client) { c.logBodies = enabled }
}

// WithDefaultHeader adds a header sent with every request.
func WithDefaultHeader(name, value string) Option {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = http.Header{}
		}
		c.headers.Add(name, value)
	}
}

// New creates a Client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retry: RetryPolicy{
			MaxRetries:     3,
			InitialBackoff: 200 * time.Millisecond,
			MaxBackoff:     30 * time.Second,
		},
		logs:  zap.NewNop().Sugar(),
		debug: framework.NullLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// FromConfig creates a Client from the harness configuration.
func FromConfig(cfg config.APIConfig, logs *zap.SugaredLogger, debug framework.Logger, opts ...Option) *Client {
	base := []Option{
		WithHTTPClient(&http.Client{
			Timeout: cfg.RequestTimeout.Value(),
			Transport: &http.Transport{
				ResponseHeaderTimeout: cfg.RequestTimeout.Value(),
			},
		}),
		WithRetryPolicy(RetryPolicy{
			MaxRetries:     cfg.RetryCount,
			InitialBackoff: cfg.RetryBackoff.Value(),
			MaxBackoff:     30 * time.Second,
		}),
		WithLogger(logs),
		WithDebugLogger(debug),
		WithBodyLogging(cfg.LogTraffic),
	}
	c := New(cfg.BaseURL, append(base, opts...)...)
	if cfg.AuthToken != "" {
		WithDefaultHeader("Authorization", "Bearer "+cfg.AuthToken)(c)
	} else if cfg.Username != "" {
		token := base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.Password))
		WithDefaultHeader("Authorization", "Basic "+token)(c)
	}
	return c
}

// BaseURL returns the base URL the client was created with.
func (c *Client) BaseURL() string { return c.baseURL }

// Get starts a GET request for the given path. The path may contain
// {name} placeholders filled in with PathParam.
func (c *Client) Get(path string) *RequestBuilder { return c.NewRequest(http.MethodGet, path) }

// Post starts a POST request for the given path.
func (c *Client) Post(path string) *RequestBuilder { return c.NewRequest(http.MethodPost, path) }

// Put starts a PUT request for the given path.
func (c *Client) Put(path string) *RequestBuilder { return c.NewRequest(http.MethodPut, path) }

// Patch starts a PATCH request for the given path.
func (c *Client) Patch(path string) *RequestBuilder { return c.NewRequest(http.MethodPatch, path) }

// Delete starts a DELETE request for the given path.
func (c *Client) Delete(path string) *RequestBuilder { return c.NewRequest(http.MethodDelete, path) }

// Head starts a HEAD request for the given path.
func (c *Client) Head(path string) *RequestBuilder { return c.NewRequest(http.MethodHead, path) }

// Options starts an OPTIONS request for the given path.
func (c *Client) Options(path string) *RequestBuilder { return c.NewRequest(http.MethodOptions, path) }

// NewRequest starts a request with an arbitrary method.
func (c *Client) NewRequest(method, path string) *RequestBuilder {
	return &RequestBuilder{
		client:  c,
		method:  method,
		path:    path,
		headers: http.Header{},
		query:   map[string][]string{},
	}
}
