// Package config loads the crawler configuration from an optional YAML file
// and environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Sternrassler/catalogue-crawler/pkg/cache"
	"github.com/Sternrassler/catalogue-crawler/pkg/catalogue"
	"github.com/Sternrassler/catalogue-crawler/pkg/client"
	"github.com/Sternrassler/catalogue-crawler/pkg/logging"
	"github.com/Sternrassler/catalogue-crawler/pkg/ratelimit"
	"github.com/Sternrassler/catalogue-crawler/pkg/sink"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv  = "CRAWLER_CONFIG"
	endpointEnv    = "CATALOGUE_ENDPOINT"
	outputEnv      = "CRAWLER_OUTPUT"
	databaseDSNEnv = "DATABASE_DSN"
	redisURLEnv    = "REDIS_URL"
	logLevelEnv    = "LOG_LEVEL"
	metricsAddrEnv = "METRICS_ADDR"
	userAgentEnv   = "USER_AGENT"
)

// DefaultEndpoint is the public listing endpoint crawled by default.
const DefaultEndpoint = "https://api.jikan.moe/v4/anime"

// DefaultUserAgent identifies the crawler to the upstream.
const DefaultUserAgent = "catalogue-crawler/0.1.0 (+https://github.com/Sternrassler/catalogue-crawler)"

// Config holds all settings of one crawler run.
type Config struct {
	Crawl   CrawlConfig   `yaml:"crawl"`
	Client  ClientConfig  `yaml:"client"`
	Cache   CacheConfig   `yaml:"cache"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// CrawlConfig describes what is crawled and how fast.
type CrawlConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Type         string        `yaml:"type"`
	Limit        int           `yaml:"limit"`

	// RequestDelay paces pages after the first. Zero means the default
	// delay; a negative value disables pacing.
	RequestDelay time.Duration `yaml:"requestDelay"`
}

// ClientConfig tunes the rate-limited HTTP client.
type ClientConfig struct {
	UserAgent   string        `yaml:"userAgent"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"maxRetries"`
	BackoffBase time.Duration `yaml:"backoffBase"`
}

// CacheConfig enables the optional response cache.
type CacheConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MemorySize  int           `yaml:"memorySize"`
	MemoryTTL   time.Duration `yaml:"memoryTTL"`
	FallbackTTL time.Duration `yaml:"fallbackTTL"`
	RedisURL    string        `yaml:"redisURL"`
}

// OutputConfig selects the sinks.
type OutputConfig struct {
	CSVPath     string `yaml:"csvPath"`
	PostgresDSN string `yaml:"postgresDSN"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration for a full TV listing crawl.
func Default() Config {
	retry := client.DefaultRetryConfig()
	return Config{
		Crawl: CrawlConfig{
			Endpoint:     DefaultEndpoint,
			Type:         catalogue.DefaultType,
			Limit:        catalogue.DefaultLimit,
			RequestDelay: ratelimit.DefaultRequestDelay,
		},
		Client: ClientConfig{
			UserAgent:   DefaultUserAgent,
			Timeout:     30 * time.Second,
			MaxRetries:  retry.MaxAttempts,
			BackoffBase: retry.BaseDelay,
		},
		Cache: CacheConfig{
			MemorySize:  cache.DefaultMemorySize,
			MemoryTTL:   cache.DefaultMemoryTTL,
			FallbackTTL: cache.DefaultTTL,
		},
		Output: OutputConfig{
			CSVPath: sink.DefaultCSVPath,
		},
		Logging: LoggingConfig{
			Level: string(logging.LevelInfo),
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (or
// $CRAWLER_CONFIG when path is empty), then environment overrides. Keys
// missing from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(endpointEnv); v != "" {
		c.Crawl.Endpoint = v
	}

	if v := os.Getenv(outputEnv); v != "" {
		c.Output.CSVPath = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Output.PostgresDSN = v
	}

	if v := os.Getenv(redisURLEnv); v != "" {
		c.Cache.RedisURL = v
		c.Cache.Enabled = true
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(metricsAddrEnv); v != "" {
		c.Metrics.Addr = v
	}

	if v := os.Getenv(userAgentEnv); v != "" {
		c.Client.UserAgent = v
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.Crawl.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("crawl.endpoint must be an absolute URL (got %q)", c.Crawl.Endpoint))
	}
	if c.Crawl.Limit <= 0 {
		errs = append(errs, fmt.Errorf("crawl.limit must be positive (got %d)", c.Crawl.Limit))
	}

	if strings.TrimSpace(c.Client.UserAgent) == "" {
		errs = append(errs, errors.New("client.userAgent is required"))
	}
	if c.Client.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("client.timeout must be positive (got %s)", c.Client.Timeout))
	}
	if c.Client.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("client.maxRetries must be >= 1 (got %d)", c.Client.MaxRetries))
	}
	if c.Client.BackoffBase < 0 {
		errs = append(errs, fmt.Errorf("client.backoffBase cannot be negative (got %s)", c.Client.BackoffBase))
	}

	if c.Cache.MemorySize < 0 {
		errs = append(errs, fmt.Errorf("cache.memorySize cannot be negative (got %d)", c.Cache.MemorySize))
	}

	if strings.TrimSpace(c.Output.CSVPath) == "" {
		errs = append(errs, errors.New("output.csvPath is required"))
	}

	if err := logging.ValidateLevel(logging.LogLevel(c.Logging.Level)); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}

	return errors.Join(errs...)
}
