// Package ratelimit keeps a sequential crawl under the upstream's steady-state
// request rate. It provides the blocking sleep used for both the fixed
// inter-request delay and the client's throttling backoff.
package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for request pacing.
var (
	pacingWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalogue_pacing_waits_total",
		Help: "Total number of inter-request delays applied",
	})

	pacingWaitSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalogue_pacing_wait_seconds_total",
		Help: "Cumulative time spent in inter-request delays",
	})
)

// DefaultRequestDelay is the pause between two page requests.
const DefaultRequestDelay = 500 * time.Millisecond

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the production SleepFunc. It returns ctx.Err() if the context
// ends before d has elapsed.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Pacer applies a fixed delay before each request after the first.
// It is not safe for concurrent use; a crawl has a single caller.
type Pacer struct {
	delay  time.Duration
	sleep  SleepFunc
	logger zerolog.Logger
}

// NewPacer creates a pacer with the given fixed delay.
func NewPacer(delay time.Duration, logger zerolog.Logger) *Pacer {
	if delay < 0 {
		delay = 0
	}
	return &Pacer{
		delay:  delay,
		sleep:  Sleep,
		logger: logger,
	}
}

// SetSleep replaces the sleep implementation (for testing).
func (p *Pacer) SetSleep(fn SleepFunc) {
	p.sleep = fn
}

// Delay returns the configured inter-request delay.
func (p *Pacer) Delay() time.Duration {
	return p.delay
}

// Wait blocks for the configured delay.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.delay == 0 {
		return ctx.Err()
	}

	p.logger.Debug().Dur("delay", p.delay).Msg("Pacing before next request")

	if err := p.sleep(ctx, p.delay); err != nil {
		return err
	}

	pacingWaitsTotal.Inc()
	pacingWaitSeconds.Add(p.delay.Seconds())
	return nil
}
