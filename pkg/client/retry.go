package client

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Sternrassler/catalogue-crawler/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalogue_retries_total",
		Help: "Total number of retries after a throttled response",
	})

	retryBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalogue_retry_backoff_seconds",
		Help:    "Backoff duration before retrying a throttled request",
		Buckets: []float64{0.5, 1, 2, 4, 8, 16, 32},
	})

	retryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalogue_retry_exhausted_total",
		Help: "Total number of requests that stayed throttled for every attempt",
	})
)

// maxBackoffExponent keeps base << attempt inside time.Duration.
const maxBackoffExponent = 30

// maxBackoff is the largest representable wait.
const maxBackoff = time.Duration(math.MaxInt64)

// RetryConfig holds the configuration for throttling retries.
type RetryConfig struct {
	// MaxAttempts is the maximum number of requests per call (including the first).
	MaxAttempts int

	// BaseDelay is multiplied by 2^attempt to get the wait after a throttled attempt.
	BaseDelay time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   500 * time.Millisecond,
	}
}

// RetryState is the per-call retry bookkeeping.
type RetryState struct {
	// Attempt is the 1-based number of the attempt that was throttled.
	Attempt int

	// Wait is the backoff applied before the next attempt.
	Wait time.Duration
}

// BackoffDelay returns base × 2^attempt, saturating at maxBackoff.
func BackoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > maxBackoffExponent {
		attempt = maxBackoffExponent
	}
	factor := time.Duration(int64(1) << attempt)
	if base > maxBackoff/factor {
		return maxBackoff
	}
	return base * factor
}

// retryOnThrottle runs fn until it succeeds, fails with anything other than
// ErrThrottled, or config.MaxAttempts attempts were all throttled.
func retryOnThrottle(ctx context.Context, config RetryConfig, sleep ratelimit.SleepFunc, fn func(attempt int) error) error {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			if attempt > 1 {
				log.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		if !errors.Is(err, ErrThrottled) {
			return err
		}
		lastErr = err

		if attempt >= config.MaxAttempts {
			break
		}

		state := RetryState{
			Attempt: attempt,
			Wait:    BackoffDelay(config.BaseDelay, attempt),
		}

		retriesTotal.Inc()
		retryBackoffSeconds.Observe(state.Wait.Seconds())

		log.Warn().
			Int("attempt", state.Attempt).
			Dur("backoff", state.Wait).
			Msg("Rate limited (429), backing off before retry")

		if err := sleep(ctx, state.Wait); err != nil {
			log.Warn().
				Int("attempt", state.Attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("backoff interrupted: %w", err)
		}
	}

	retryExhaustedTotal.Inc()
	log.Error().
		Int("max_attempts", config.MaxAttempts).
		Msg("Retry attempts exhausted, upstream kept throttling")

	return fmt.Errorf("%w after %d attempts: %w", ErrRateLimitExceeded, config.MaxAttempts, lastErr)
}
