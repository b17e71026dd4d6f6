// Package metrics exposes the crawler's Prometheus metrics.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, pagination, sink) and registered via promauto on the default
// registry; this package serves them and documents what exists.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Handler returns the HTTP handler serving the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server serves /metrics and /health while a crawl runs.
type Server struct {
	srv    *http.Server
	logger zerolog.Logger
}

// NewServer creates a metrics server listening on addr.
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", healthHandler)

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start serves in a background goroutine. Listen errors are logged.
func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Str("addr", s.srv.Addr).Msg("Metrics server failed")
		}
	}()
	s.logger.Info().Str("addr", s.srv.Addr).Msg("Metrics server enabled")
}

// Shutdown stops the server, waiting at most timeout for open requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}
	return nil
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// Metrics Documentation
//
// Pacing Metrics (pkg/ratelimit):
//   - catalogue_pacing_waits_total (Counter): Inter-request delays applied
//   - catalogue_pacing_wait_seconds_total (Counter): Time spent in inter-request delays
//
// Cache Metrics (pkg/cache):
//   - catalogue_cache_hits_total{layer="memory|redis"} (Counter): Cache hits by layer
//   - catalogue_cache_misses_total (Counter): Cache misses
//   - catalogue_cache_size_bytes{layer} (Gauge): Bytes written per layer
//   - catalogue_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - catalogue_requests_total{status} (Counter): HTTP attempts by status
//   - catalogue_request_duration_seconds (Histogram): Logical page fetch duration, retries included
//   - catalogue_errors_total{class} (Counter): Errors by class (throttled, client, server, network, malformed)
//
// Retry Metrics (pkg/client):
//   - catalogue_retries_total (Counter): Retries after a throttled response
//   - catalogue_retry_backoff_seconds (Histogram): Backoff waits
//   - catalogue_retry_exhausted_total (Counter): Fetches that stayed throttled on every attempt
//
// Crawl Metrics (pkg/pagination):
//   - catalogue_crawl_pages_fetched_total (Counter): Pages collected
//   - catalogue_crawl_total_pages (Gauge): Total pages of the current crawl
//   - catalogue_crawl_records (Gauge): Records accumulated so far
//   - catalogue_crawl_eta_seconds (Gauge): Estimated time remaining
//   - catalogue_crawl_failures_total (Counter): Aborted crawls
//
// Sink Metrics (pkg/sink):
//   - catalogue_sink_rows_written_total{sink} (Counter): Records persisted
//   - catalogue_sink_errors_total{sink} (Counter): Failed writes
//   - catalogue_sink_write_duration_seconds{sink} (Histogram): Write duration
//
// Example Prometheus Queries:
//
//   # Throttling Rate
//   rate(catalogue_retries_total[5m]) / rate(catalogue_requests_total[5m])
//
//   # Crawl Completion
//   catalogue_crawl_pages_fetched_total / catalogue_crawl_total_pages
//
//   # P95 Page Latency
//   histogram_quantile(0.95, rate(catalogue_request_duration_seconds_bucket[5m]))
