// Command crawler collects the complete catalogue listing and writes it as a
// CSV dataset, optionally mirroring it into Postgres.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/catalogue-crawler/internal/config"
	"github.com/Sternrassler/catalogue-crawler/pkg/cache"
	"github.com/Sternrassler/catalogue-crawler/pkg/client"
	"github.com/Sternrassler/catalogue-crawler/pkg/logging"
	"github.com/Sternrassler/catalogue-crawler/pkg/metrics"
	"github.com/Sternrassler/catalogue-crawler/pkg/pagination"
	"github.com/Sternrassler/catalogue-crawler/pkg/sink"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	var (
		configPath = flag.String("config", "", "path to YAML config (default $CRAWLER_CONFIG)")
		output     = flag.String("output", "", "CSV output path (overrides config)")
		endpoint   = flag.String("endpoint", "", "listing endpoint URL (overrides config)")
		verbose    = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "crawler: %v\n", err)
		return 1
	}
	applyFlags(&cfg, *output, *endpoint, *verbose)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "crawler: invalid configuration:\n%v\n", err)
		return 1
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Pretty,
		Output: os.Stderr,
	})

	crawlID := uuid.New()
	logger := logging.WithCrawl(logging.NewLogger("crawler"), crawlID.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		srv := metrics.NewServer(cfg.Metrics.Addr, logger)
		srv.Start()
		defer func() {
			if err := srv.Shutdown(5 * time.Second); err != nil {
				logger.Error().Err(err).Msg("Metrics server shutdown failed")
			}
		}()
	}

	if err := run(ctx, cfg, crawlID, logger); err != nil {
		logRunError(logger, err)
		return 1
	}
	return 0
}

// logRunError tells a failed crawl, which writes nothing, apart from a failed
// sink write, which may leave earlier sinks written.
func logRunError(logger zerolog.Logger, err error) {
	var writeErr *sink.WriteError
	if errors.As(err, &writeErr) {
		logger.Error().
			Err(err).
			Str("failed_sink", writeErr.Sink).
			Strs("written_sinks", writeErr.Written).
			Msg("Dataset write failed")
		return
	}
	logger.Error().Err(err).Msg("Crawl failed, no dataset written")
}

// applyFlags lets command-line flags override file and environment values.
func applyFlags(cfg *config.Config, output, endpoint string, verbose bool) {
	if output != "" {
		cfg.Output.CSVPath = output
	}
	if endpoint != "" {
		cfg.Crawl.Endpoint = endpoint
	}
	if verbose {
		cfg.Logging.Level = string(logging.LevelDebug)
	}
}

// run performs one crawl and hands the complete dataset to the sinks. Sinks
// are opened before the crawl starts so that a bad database DSN fails fast.
func run(ctx context.Context, cfg config.Config, crawlID uuid.UUID, logger zerolog.Logger) error {
	cacheManager, closeCache, err := newCache(ctx, cfg.Cache, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	c, err := client.New(client.Config{
		UserAgent:   cfg.Client.UserAgent,
		Timeout:     cfg.Client.Timeout,
		MaxRetries:  cfg.Client.MaxRetries,
		BackoffBase: cfg.Client.BackoffBase,
		Cache:       cacheManager,
		CacheTTL:    cfg.Cache.FallbackTTL,
	})
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	out, closeSinks, err := newSinks(ctx, cfg.Output, crawlID, logger)
	if err != nil {
		return err
	}
	defer closeSinks()

	driver := pagination.NewDriver(c, pagination.Config{
		Type:         cfg.Crawl.Type,
		Limit:        cfg.Crawl.Limit,
		RequestDelay: cfg.Crawl.RequestDelay,
	}, logger.With().Str("component", "pagination").Logger())

	start := time.Now()
	records, err := driver.Collect(ctx, cfg.Crawl.Endpoint)
	if err != nil {
		return fmt.Errorf("crawl %s: %w", cfg.Crawl.Endpoint, err)
	}

	if err := out.Write(ctx, records); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}

	logger.Info().
		Int("records", len(records)).
		Str("csv", cfg.Output.CSVPath).
		Dur("duration", time.Since(start)).
		Msg("Crawl finished")

	return nil
}

// newCache builds the optional response cache. It returns a nil manager when
// caching is disabled.
func newCache(ctx context.Context, cfg config.CacheConfig, logger zerolog.Logger) (*cache.Manager, func(), error) {
	if !cfg.Enabled {
		return nil, func() {}, nil
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redisOptions(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		redisClient = redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			redisClient.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
		}
		logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
	}

	manager := cache.NewManager(cache.Config{
		MemorySize: cfg.MemorySize,
		MemoryTTL:  cfg.MemoryTTL,
		Redis:      redisClient,
	})

	closeFn := func() {
		if redisClient != nil {
			redisClient.Close()
		}
	}
	return manager, closeFn, nil
}

// redisOptions accepts either a redis:// URL or a bare host:port.
func redisOptions(raw string) (*redis.Options, error) {
	if strings.Contains(raw, "://") {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: raw}, nil
}

// newSinks builds the CSV sink and, when a DSN is configured, the Postgres
// sink after it.
func newSinks(ctx context.Context, cfg config.OutputConfig, crawlID uuid.UUID, logger zerolog.Logger) (sink.Sink, func(), error) {
	csvSink := sink.NewCSVSink(cfg.CSVPath, logger.With().Str("component", "sink").Logger())

	if cfg.PostgresDSN == "" {
		return sink.NewMultiSink(csvSink), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	pgSink := sink.NewPostgresSink(pool, crawlID, logger.With().Str("component", "sink").Logger())
	if err := pgSink.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Info().
		Str("table", sink.RecordsTable).
		Str("row_crawl_id", pgSink.CrawlID().String()).
		Msg("Postgres sink ready")

	return sink.NewMultiSink(csvSink, pgSink), pool.Close, nil
}
