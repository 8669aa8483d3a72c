// Package client builds requests for SWire endpoints and decodes their responses. Requests are
// encoded with the runtime's first registered encoding, and non-2xx responses become
// *serviceerror.RemoteError values.
package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/Suhaibinator/SWire/pkg/endpoint"
	"github.com/Suhaibinator/SWire/pkg/wire"
)

// Common errors for the client.
var (
	ErrMissingBaseURL   = errors.New("missing base URL")
	ErrInvalidBaseURL   = errors.New("base URL must be absolute")
	ErrMissingPathParam = errors.New("missing path parameter")
	ErrNotResettable    = errors.New("request body cannot be replayed")
)

// Config holds configuration for a Client.
type Config struct {
	// BaseURL is prepended to every endpoint path, e.g. "https://catalog.internal/api".
	BaseURL string

	// HTTPClient sends the requests (optional).
	HTTPClient *http.Client

	// Timeout is used for the default HTTP client. Ignored when HTTPClient is set.
	Timeout time.Duration

	// Runtime supplies the encodings (optional). Defaults to wire.Default().
	Runtime *wire.Runtime

	// Logger is the logger to use (optional).
	Logger *zap.Logger

	// RateLimit caps the number of requests per second sent by this client. Zero disables it.
	RateLimit int
}

// Client sends requests to the endpoints of one service.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	rt         *wire.Runtime
	logger     *zap.Logger
	limiter    ratelimit.Limiter
}

// New creates a client.
func New(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}
	base, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, err
	}
	if !base.IsAbs() {
		return nil, ErrInvalidBaseURL
	}
	base.Path = strings.TrimSuffix(base.Path, "/")
	base.RawPath = strings.TrimSuffix(base.RawPath, "/")

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	rt := config.Runtime
	if rt == nil {
		rt = wire.Default()
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	limiter := ratelimit.NewUnlimited()
	if config.RateLimit > 0 {
		limiter = ratelimit.New(config.RateLimit)
	}

	return &Client{
		base:       base,
		httpClient: httpClient,
		rt:         rt,
		logger:     logger,
		limiter:    limiter,
	}, nil
}

// Runtime returns the runtime the client encodes and decodes with.
func (c *Client) Runtime() *wire.Runtime {
	return c.rt
}

// NewRequest starts building a request for the endpoint described by m.
func (c *Client) NewRequest(m *endpoint.Metadata) *RequestBuilder {
	return &RequestBuilder{
		client: c,
		m:      m,
		path:   make(map[string]string),
		query:  make(url.Values),
		header: make(http.Header),
	}
}

// Do sends req after waiting for the rate limiter.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.limiter.Take()

	start := time.Now()
	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		c.logger.Debug("Request failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.Error(err),
		)
		return nil, err
	}
	c.logger.Debug("Received response",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}
