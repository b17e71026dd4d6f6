// Package client provides the rate-limited HTTP client for the catalogue
// listing API: one logical page request with exponential backoff on
// throttling, optional response caching and request metrics.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/catalogue-crawler/pkg/cache"
	"github.com/Sternrassler/catalogue-crawler/pkg/catalogue"
	"github.com/Sternrassler/catalogue-crawler/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalogue_requests_total",
		Help: "Total listing requests by HTTP status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalogue_request_duration_seconds",
		Help:    "Duration of a logical page fetch, including retries",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalogue_errors_total",
		Help: "Total listing errors by class",
	}, []string{"class"})
)

// Client fetches listing pages.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	config     Config
	sleep      ratelimit.SleepFunc
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// User-Agent header sent with every request (REQUIRED)
	UserAgent string

	// Timeout per HTTP request
	Timeout time.Duration

	// Retry on throttling
	MaxRetries  int           // Max requests per Fetch while throttled
	BackoffBase time.Duration // Wait after attempt n is BackoffBase * 2^n

	// Caching (optional)
	Cache    *cache.Manager
	CacheTTL time.Duration // Used when the response has no Expires header
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	retry := DefaultRetryConfig()
	return Config{
		UserAgent:   userAgent,
		Timeout:     30 * time.Second,
		MaxRetries:  retry.MaxAttempts,
		BackoffBase: retry.BaseDelay,
		CacheTTL:    cache.DefaultTTL,
	}
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("max_retries must be >= 1 (got %d)", cfg.MaxRetries)
	}

	if cfg.BackoffBase < 0 {
		return nil, fmt.Errorf("backoff_base cannot be negative (got %s)", cfg.BackoffBase)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache:  cfg.Cache,
		config: cfg,
		sleep:  ratelimit.Sleep,
		logger: log.With().Str("component", "catalogue-client").Logger(),
	}, nil
}

// Fetch performs one logical listing request. Throttled responses are retried
// with exponential backoff; every other failure is returned immediately.
func (c *Client) Fetch(ctx context.Context, endpoint string, query catalogue.Query) (*catalogue.Page, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	reqURL, err := buildURL(endpoint, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	cacheKey := cache.CacheKey{
		Endpoint:    endpoint,
		QueryParams: query.Values(),
	}

	if page := c.fromCache(ctx, cacheKey); page != nil {
		return page, nil
	}

	startTime := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(startTime).Seconds())
	}()

	var entry *cache.CacheEntry
	retryErr := retryOnThrottle(ctx, c.retryConfig(), c.sleep, func(attempt int) error {
		var reqErr error
		entry, reqErr = c.do(ctx, reqURL, attempt)
		return reqErr
	})
	if retryErr != nil {
		return nil, retryErr
	}

	page, err := catalogue.DecodePage(entry.Data)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassMalformed)).Inc()
		c.logger.Error().Err(err).Int("page", query.Page).Msg("Malformed listing page")
		return nil, fmt.Errorf("decode page %d: %w", query.Page, err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Int("page", query.Page).Msg("Failed to cache response")
		}
	}

	return page, nil
}

// do executes a single HTTP attempt. It returns ErrThrottled for 429 so the
// retry loop can back off.
func (c *Client) do(ctx context.Context, reqURL string, attempt int) (*cache.CacheEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("url", reqURL).
		Int("attempt", attempt).
		Msg("Executing listing request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues("network_error").Inc()
		c.logger.Error().Err(err).Str("url", reqURL).Msg("HTTP request failed")
		return nil, fmt.Errorf("request %s: %w", reqURL, err)
	}

	requestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		drain(resp)

		class := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(class)).Inc()

		if shouldRetry(class) {
			return nil, ErrThrottled
		}

		c.logger.Warn().
			Str("url", reqURL).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Listing request failed")

		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Endpoint:   reqURL,
		}
	}

	entry, err := cache.ResponseToEntry(resp, c.config.CacheTTL)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, fmt.Errorf("read response %s: %w", reqURL, err)
	}

	return entry, nil
}

// fromCache returns a cached page, or nil when the cache is disabled, misses
// or holds something that no longer decodes.
func (c *Client) fromCache(ctx context.Context, key cache.CacheKey) *catalogue.Page {
	if c.cache == nil {
		return nil
	}

	entry, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache get error")
		}
		return nil
	}

	page, err := catalogue.DecodePage(entry.Data)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key.String()).Msg("Discarding undecodable cache entry")
		_ = c.cache.Delete(ctx, key)
		return nil
	}

	c.logger.Debug().Str("key", key.String()).Dur("ttl", entry.TTL()).Msg("Serving page from cache")
	return page
}

func (c *Client) retryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: c.config.MaxRetries,
		BaseDelay:   c.config.BackoffBase,
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SetSleep replaces the backoff sleep (for testing).
func (c *Client) SetSleep(fn ratelimit.SleepFunc) {
	c.sleep = fn
}

// buildURL merges the query into the endpoint's existing parameters.
func buildURL(endpoint string, query catalogue.Query) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("endpoint must be absolute (got %q)", endpoint)
	}

	values := u.Query()
	for key, vals := range query.Values() {
		values[key] = vals
	}
	u.RawQuery = values.Encode()

	return u.String(), nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
