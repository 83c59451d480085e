// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is where a locally started backend listens.
const DefaultBaseURL = "http://localhost:8000/api"

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 10 << 20

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// TokenStore holds the bearer credentials the client attaches to requests.
// Implementations must be safe for concurrent use.
type TokenStore interface {
	AccessToken() string
	RefreshToken() string
	SetTokens(access, refresh string) error
}

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the API root including the /api prefix (default: http://localhost:8000/api)
	BaseURL string

	// Timeout bounds every request end to end (default: 30s)
	Timeout time.Duration

	// MaxRetries is the number of extra attempts for failed GETs (default: 2).
	// Negative disables retries.
	MaxRetries int

	// RetryDelay is the first backoff interval (default: 500ms)
	RetryDelay time.Duration

	// RateLimit is the sustained requests per second (default: 5). Negative disables throttling.
	RateLimit float64

	// RateBurst is the limiter bucket size (default: 10)
	RateBurst int

	// UserAgent identifies the client (default: "taxease")
	UserAgent string

	// Tokens supplies bearer credentials. Nil sends unauthenticated requests.
	Tokens TokenStore

	// Logger receives request tracing. Nil disables logging.
	Logger *zerolog.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:    DefaultBaseURL,
		Timeout:    30 * time.Second,
		MaxRetries: 2,
		RetryDelay: 500 * time.Millisecond,
		RateLimit:  5,
		RateBurst:  10,
		UserAgent:  "taxease",
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the TaxEase backend.
//
// The Client is safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger

	// refreshMu serializes token refreshes so concurrent 401s refresh once.
	refreshMu sync.Mutex
}

// NewClient creates a client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 2
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 500 * time.Millisecond
	}
	if config.RateLimit == 0 {
		config.RateLimit = 5
	}
	if config.RateBurst == 0 {
		config.RateBurst = 10
	}
	if config.UserAgent == "" {
		config.UserAgent = "taxease"
	}

	limit := rate.Limit(config.RateLimit)
	if config.RateLimit < 0 {
		limit = rate.Inf
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = config.Logger.With().Str("component", "api").Logger()
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(limit, config.RateBurst),
		log:     logger,
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.config.Timeout
}

// =============================================================================
// REQUEST PIPELINE
// =============================================================================

// call describes one logical backend operation.
type call struct {
	op     string
	method string
	path   string
	body   any
	out    any

	// anonymous requests carry no bearer token and never trigger a refresh.
	anonymous bool
}

// do executes a call, retrying GETs with exponential backoff.
func (c *Client) do(ctx context.Context, cl call) error {
	var payload []byte
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return &Error{Kind: KindValidation, Op: cl.op, Detail: "failed to encode request", Cause: err}
		}
		payload = data
	}

	if cl.method != http.MethodGet || c.config.MaxRetries < 0 {
		return c.send(ctx, cl, payload, !cl.anonymous)
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.config.RetryDelay
	exp.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.config.MaxRetries)), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := c.send(ctx, cl, payload, !cl.anonymous)
		if err == nil {
			return nil
		}
		if !retryable(err) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		c.log.Debug().Str("op", cl.op).Int("attempt", attempt).Err(err).Msg("retrying read")
		return err
	}, policy)
}

// send performs a single HTTP exchange. On 401 it refreshes the access
// token once and replays the request.
func (c *Client) send(ctx context.Context, cl call, payload []byte, allowRefresh bool) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Kind: KindNetwork, Op: cl.op, Cause: err}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, c.config.BaseURL+cl.path, body)
	if err != nil {
		return &Error{Kind: KindNetwork, Op: cl.op, Detail: "failed to create request", Cause: err}
	}

	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	var token string
	if !cl.anonymous && c.config.Tokens != nil {
		token = c.config.Tokens.AccessToken()
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Str("op", cl.op).Str("request_id", requestID).Err(err).Msg("request failed")
		return &Error{Kind: KindNetwork, Op: cl.op, Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &Error{Kind: KindNetwork, Op: cl.op, Status: resp.StatusCode, Cause: err}
	}

	c.log.Debug().
		Str("op", cl.op).
		Str("method", cl.method).
		Str("path", cl.path).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request")

	if resp.StatusCode == http.StatusUnauthorized && allowRefresh && c.canRefresh() {
		rerr := c.refreshOnce(ctx, token)
		if rerr == nil {
			return c.send(ctx, cl, payload, false)
		}
		c.log.Warn().Err(rerr).Msg("token refresh failed")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(cl.op, resp.StatusCode, data)
	}

	if cl.out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, cl.out); err != nil {
		return &Error{Kind: KindServer, Op: cl.op, Status: resp.StatusCode, Detail: "failed to decode response", Cause: err}
	}
	return nil
}

func (c *Client) canRefresh() bool {
	return c.config.Tokens != nil && c.config.Tokens.RefreshToken() != ""
}

// refreshOnce refreshes the access token unless another goroutine already
// replaced the token that was rejected.
func (c *Client) refreshOnce(ctx context.Context, rejected string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if current := c.config.Tokens.AccessToken(); current != "" && current != rejected {
		return nil
	}

	tokens, err := c.Refresh(ctx, c.config.Tokens.RefreshToken())
	if err != nil {
		return err
	}
	refresh := tokens.RefreshToken
	if refresh == "" {
		refresh = c.config.Tokens.RefreshToken()
	}
	return c.config.Tokens.SetTokens(tokens.AccessToken, refresh)
}
