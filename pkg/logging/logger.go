// Package logging configures zerolog for the crawler.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug adds per-request and cache detail.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs one line per collected page.
	LevelInfo LogLevel = "info"

	// LevelWarn logs throttling and degraded cache operation.
	LevelWarn LogLevel = "warn"

	// LevelError logs aborted crawls and failed writes only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ValidateLevel reports whether level is one of the known levels.
func ValidateLevel(level LogLevel) error {
	switch strings.ToLower(string(level)) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("unknown log level %q (want debug, info, warn or error)", level)
	}
}

// parseLevel converts LogLevel to zerolog.Level. Unknown levels map to info.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// WithCrawl derives a logger tagged with the crawl ID, so every line of one
// run can be correlated with the rows the Postgres sink stores.
func WithCrawl(logger zerolog.Logger, crawlID string) zerolog.Logger {
	return logger.With().Str("crawl_id", crawlID).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Each HTTP attempt (url, attempt)
//   - Cache hits and TTLs
//   - Pacing delays
//
// Info: Normal operation events
//   - Crawl start (total pages, request delay)
//   - One line per collected page with progress and ETA
//   - Dataset written, records stored
//
// Warn: Warning conditions that don't prevent operation
//   - Throttled responses and backoff waits
//   - Non-throttling HTTP errors before they abort the crawl
//   - Cache errors (fallback to direct request)
//
// Error: Error conditions requiring attention
//   - Rate limit exhausted
//   - Malformed pages
//   - Crawl aborted, sink write failed
//
// Context Fields:
//   - crawl_id: UUID of the run
//   - component: catalogue-client, pagination, sink, cache
//   - page, total_pages, records: crawl position
//   - elapsed, eta: progress telemetry
//   - status, error_class: HTTP outcome (throttled, client, server, network, malformed)
//   - attempt, wait: retry state
