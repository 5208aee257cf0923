// Package client provides the Intercom HTTP client with bearer authentication,
// rate limit pacing, and error classification.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/CJWorkbench/intercom/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for Intercom client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intercom_requests_total",
		Help: "Total Intercom requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "intercom_request_duration_seconds",
		Help:    "Intercom request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intercom_errors_total",
		Help: "Total Intercom errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of HTTP errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses and locally blocked requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// Client is the Intercom HTTP client. It is safe for concurrent use; each
// request carries its own bearer token.
type Client struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.Tracker
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// User-Agent header sent with every request.
	UserAgent string

	// Timeout bounds each request, including reading the body.
	Timeout time.Duration

	// RateLimitStore holds rate limit state. Nil means in-memory, per client.
	RateLimitStore ratelimit.Store

	// RateLimit configures request pacing.
	RateLimit ratelimit.Config
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent: userAgent,
		Timeout:   5 * time.Minute,
		RateLimit: ratelimit.DefaultConfig(),
	}
}

// New creates a new Intercom client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive (got %s)", cfg.Timeout)
	}

	logger := log.With().Str("component", "intercom-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: ratelimit.NewTracker(cfg.RateLimitStore, cfg.RateLimit, logger),
		config:      cfg,
		logger:      logger,
	}, nil
}

// Do sends req authenticated with bearerToken. Any non-2xx status, network
// failure or rate limit block is returned as a *TransportError; on success
// the caller owns the response body.
func (c *Client) Do(req *http.Request, bearerToken string) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path
	scope := ratelimit.Scope(bearerToken)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Pace against the rate limit
	allowed, err := c.rateLimiter.ShouldAllowRequest(ctx, scope)
	if err != nil {
		if ctx.Err() != nil {
			return nil, c.networkError(req, endpoint, ctx.Err())
		}
		// Pacing is advisory; an unavailable store must not fail the fetch.
		c.logger.Warn().Err(err).Msg("Rate limit check failed")
	}
	if err == nil && !allowed {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Msg("Request blocked by rate limiter")
		requestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		errorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
		return nil, &TransportError{
			Method:     req.Method,
			URL:        req.URL.String(),
			ErrorClass: ErrorClassRateLimit,
			Message:    "request blocked: rate limit exhausted",
		}
	}

	// Step 2: Set headers
	req.Header.Set("Authorization", "Bearer "+bearerToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	// Step 3: Execute
	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing Intercom request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.networkError(req, endpoint, err)
	}

	// Step 4: Record rate limit state
	if err := c.rateLimiter.UpdateFromHeaders(ctx, scope, resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
	}

	// Step 5: Fail on non-2xx
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()

		errClass := c.classifyError(resp, nil)
		errorsTotal.WithLabelValues(string(errClass)).Inc()
		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Intercom request error")

		return nil, &TransportError{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	}

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	return resp, nil
}

func (c *Client) networkError(req *http.Request, endpoint string, err error) error {
	c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
	errClass := c.classifyError(nil, err)
	errorsTotal.WithLabelValues(string(errClass)).Inc()
	requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
	return &TransportError{
		Method:     req.Method,
		URL:        req.URL.String(),
		ErrorClass: errClass,
		Err:        err,
	}
}

// classifyError categorizes an error for observability and handling.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode >= 500:
		return ErrorClassServer
	case resp.StatusCode >= 300:
		return ErrorClassClient
	default:
		return ""
	}
}

// Get performs an authenticated GET request to an absolute URL.
func (c *Client) Get(ctx context.Context, url, bearerToken string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req, bearerToken)
}

// FetchPage GETs url and returns the complete response body.
func (c *Client) FetchPage(ctx context.Context, url, bearerToken string) ([]byte, error) {
	resp, err := c.Get(ctx, url, bearerToken)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.networkError(resp.Request, resp.Request.URL.Path, err)
	}
	return body, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
