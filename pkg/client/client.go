// Package client provides the GitHub REST client with retry, error
// classification, and optional conditional-request caching.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/tracefetch/gh-issue-extract/pkg/cache"
	"github.com/tracefetch/gh-issue-extract/pkg/logging"
)

// Accept header values for the GitHub API. The issue listing and comment
// endpoints use the explicit v3 media type; the timeline endpoint uses the
// generic versioned type.
const (
	AcceptV3        = "application/vnd.github.v3+json"
	AcceptVersioned = "application/vnd.github+json"
)

// DefaultBaseURL is the public GitHub REST API base.
const DefaultBaseURL = "https://api.github.com"

// Prometheus metrics for GitHub request operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gh_requests_total",
		Help: "Total GitHub requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gh_request_duration_seconds",
		Help:    "GitHub request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gh_errors_total",
		Help: "Total GitHub request errors by class",
	}, []string{"class"})
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API base, overridable for tests and GHE installs.
	BaseURL string

	// Token is the bearer credential. Empty means unauthenticated requests
	// (no Authorization header), subject to the anonymous rate limit.
	Token string

	// UserAgent identifies the tool to the API.
	UserAgent string

	// Timeout is the per-request timeout. There is no whole-run deadline;
	// callers that need one must bound the context themselves.
	Timeout time.Duration

	// Retry configures the backoff policy applied to every request.
	Retry RetryConfig

	// Cache enables ETag-based conditional requests when set. A 304 served
	// from cache does not count against the API rate limit.
	Cache *cache.Manager
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(token string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Token:     token,
		UserAgent: "gh-issue-extract/0.1.0",
		Timeout:   30 * time.Second,
		Retry:     DefaultRetryConfig(),
	}
}

// Client is the GitHub REST client shared by the pager and fan-out workers.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new GitHub client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	var httpClient *http.Client
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	} else {
		httpClient = &http.Client{}
	}
	httpClient.Timeout = cfg.Timeout

	return &Client{
		httpClient: httpClient,
		config:     cfg,
		logger:     logging.NewLogger("gh-client"),
	}, nil
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Authenticated reports whether requests carry a credential.
func (c *Client) Authenticated() bool {
	return c.config.Token != ""
}

// GetJSON performs a GET request against rawURL with the given Accept header
// and returns the response body. The request is wrapped in the retry policy;
// on exhaustion the returned error wraps ErrRetryExhausted. This is the
// single network primitive used by both pagination and fan-out.
func (c *Client) GetJSON(ctx context.Context, rawURL, accept string) ([]byte, error) {
	endpoint := endpointLabel(rawURL)

	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	baseReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	baseReq.Header.Set("Accept", accept)
	baseReq.Header.Set("User-Agent", c.config.UserAgent)

	var cached *cache.Entry
	var key cache.Key
	if c.config.Cache != nil {
		key = cache.KeyForURL(rawURL)
		cached, err = c.config.Cache.Get(ctx, key)
		if err != nil && err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	var body []byte
	var respETag string
	servedFromCache := false

	retryErr := retryWithBackoff(ctx, c.config.Retry, c.logger, func() error {
		req := baseReq.Clone(ctx)
		if cached != nil && cached.ETag != "" {
			cache.AddConditionalHeaders(req, cached)
			cache.ConditionalRequestsSent.Inc()
		}

		resp, reqErr := c.httpClient.Do(req)
		if reqErr != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			c.logger.Error().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			return fmt.Errorf("do request: %w", reqErr)
		}
		defer resp.Body.Close()

		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusNotModified && cached != nil {
			cache.NotModifiedResponses.Inc()
			c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
			body = cached.Data
			servedFromCache = true
			return nil
		}

		data, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return fmt.Errorf("read response body: %w", readErr)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			class := classifyStatus(resp.StatusCode)
			errorsTotal.WithLabelValues(string(class)).Inc()
			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(class)).
				Msg("GitHub request error")
			return &APIError{
				StatusCode: resp.StatusCode,
				ErrorClass: class,
				URL:        rawURL,
				Message:    resp.Status,
			}
		}

		body = data
		respETag = resp.Header.Get("ETag")
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	if c.config.Cache != nil && !servedFromCache && respETag != "" {
		entry := &cache.Entry{
			Data:       body,
			ETag:       respETag,
			StatusCode: http.StatusOK,
			CachedAt:   time.Now(),
		}
		if err := c.config.Cache.Set(ctx, key, entry); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to cache response")
		}
	}

	return body, nil
}

// endpointLabel reduces a request URL to a bounded-cardinality metric label
// by collapsing numeric path segments (issue numbers) to ":id".
func endpointLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "invalid"
	}
	segments := strings.Split(u.Path, "/")
	for i, s := range segments {
		if s == "" {
			continue
		}
		if _, err := strconv.Atoi(s); err == nil {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}
