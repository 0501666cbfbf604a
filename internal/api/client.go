// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Configuration constants for the chat server.
const (
	// DefaultBaseURL is the server used when none is configured.
	DefaultBaseURL = "http://localhost:8080"

	// DefaultStreamPath is the streaming send endpoint.
	DefaultStreamPath = "/api/chat/send-stream"

	// DefaultHistoryPath is the history endpoint; the conversation id is
	// appended as a path segment.
	DefaultHistoryPath = "/api/chat/history"

	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the number of attempts for a history fetch.
	DefaultMaxRetries = 3

	// DefaultHistoryRPS limits history fetches per second.
	DefaultHistoryRPS = 2.0

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize caps a history response body.
	MaxResponseSize = 10 * 1024 * 1024

	userAgent = "entchat/1.0"
)

var (
	// sharedHTTPClient serves history requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient has no timeout; streams are bounded by context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
)

// Session is the result of the external login call. Only Token is sent to
// the server; Role and DisplayName are informational.
type Session struct {
	Role        string `json:"role" toml:"role"`
	Token       string `json:"token" toml:"token"`
	DisplayName string `json:"displayName" toml:"display_name"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the chat server.
type Client struct {
	baseURL     string
	streamPath  string
	historyPath string
	session     Session

	httpClient   *http.Client
	streamClient *http.Client
	limiter      *rate.Limiter
	maxRetries   int
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithSession attaches the session token to every request.
func WithSession(s Session) Option {
	return func(c *Client) { c.session = s }
}

// WithPaths overrides the endpoint paths. Empty values keep the defaults.
func WithPaths(streamPath, historyPath string) Option {
	return func(c *Client) {
		if streamPath != "" {
			c.streamPath = streamPath
		}
		if historyPath != "" {
			c.historyPath = historyPath
		}
	}
}

// WithTimeout sets the timeout for history requests.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			return
		}
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// WithHistoryRate limits history fetches to rps per second. Zero or a
// negative value disables limiting.
func WithHistoryRate(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithMaxRetries sets the number of attempts for a history fetch.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithHTTPClient replaces both HTTP clients.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
		c.streamClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		streamPath:   DefaultStreamPath,
		historyPath:  DefaultHistoryPath,
		httpClient:   sharedHTTPClient,
		streamClient: sharedStreamingClient,
		limiter:      rate.NewLimiter(rate.Limit(DefaultHistoryRPS), 1),
		maxRetries:   DefaultMaxRetries,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Session returns the configured session.
func (c *Client) Session() Session {
	return c.session
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	if c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}
}

// readResponse reads the body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, &HTTPError{Status: resp.StatusCode, Message: "response exceeded maximum size"}
	}
	return body, nil
}

// calculateBackoff returns the delay to wait before attempt.
func calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}
