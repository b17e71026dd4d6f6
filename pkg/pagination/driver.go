package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/catalogue-crawler/pkg/catalogue"
	"github.com/Sternrassler/catalogue-crawler/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for crawl progress.
var (
	crawlPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalogue_crawl_pages_fetched_total",
		Help: "Total listing pages fetched by the crawl driver",
	})

	crawlTotalPages = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalogue_crawl_total_pages",
		Help: "Total pages reported by the first page of the current crawl",
	})

	crawlRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalogue_crawl_records",
		Help: "Records accumulated by the current crawl",
	})

	crawlETASeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalogue_crawl_eta_seconds",
		Help: "Estimated time until the current crawl completes",
	})

	crawlFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalogue_crawl_failures_total",
		Help: "Crawls aborted by an error",
	})
)

// Config holds driver configuration.
type Config struct {
	// Type is the entry type requested on every page.
	Type string

	// Limit is the page size requested on every page.
	Limit int

	// RequestDelay is the pause before every page after the first.
	RequestDelay time.Duration
}

// DefaultConfig returns the TV listing crawl configuration.
func DefaultConfig() Config {
	return Config{
		Type:         catalogue.DefaultType,
		Limit:        catalogue.DefaultLimit,
		RequestDelay: ratelimit.DefaultRequestDelay,
	}
}

// PageFetcher is implemented by the rate-limited client. A returned error is
// final for that page.
type PageFetcher interface {
	Fetch(ctx context.Context, endpoint string, query catalogue.Query) (*catalogue.Page, error)
}

// Driver walks every page of a listing endpoint in order.
type Driver struct {
	fetcher    PageFetcher
	config     Config
	pacer      *ratelimit.Pacer
	logger     zerolog.Logger
	onProgress ProgressFunc
	now        func() time.Time
}

// crawlState is owned by a single Collect call.
type crawlState struct {
	page       int
	totalPages int
	records    []catalogue.Record
	started    time.Time
}

// NewDriver creates a driver. Zero config fields take their defaults; a
// negative RequestDelay disables pacing.
func NewDriver(fetcher PageFetcher, config Config, logger zerolog.Logger) *Driver {
	if config.Limit <= 0 {
		config.Limit = catalogue.DefaultLimit
	}
	if config.RequestDelay == 0 {
		config.RequestDelay = ratelimit.DefaultRequestDelay
	}

	return &Driver{
		fetcher: fetcher,
		config:  config,
		pacer:   ratelimit.NewPacer(config.RequestDelay, logger),
		logger:  logger,
		now:     time.Now,
	}
}

// OnProgress registers a callback invoked after every fetched page.
func (d *Driver) OnProgress(fn ProgressFunc) {
	d.onProgress = fn
}

// SetSleep replaces the pacing sleep (for testing).
func (d *Driver) SetSleep(fn ratelimit.SleepFunc) {
	d.pacer.SetSleep(fn)
}

// Collect fetches every page of endpoint and returns the records of all
// pages, ordered by page and then by position within the page. The total
// page count is taken from page 1 only. Any error aborts the crawl and
// returns nil records.
func (d *Driver) Collect(ctx context.Context, endpoint string) ([]catalogue.Record, error) {
	state := &crawlState{
		records: []catalogue.Record{},
		started: d.now(),
	}

	first, err := d.fetch(ctx, endpoint, 1)
	if err != nil {
		return nil, d.abort(state, 1, err)
	}

	state.totalPages = first.LastVisiblePage
	crawlTotalPages.Set(float64(state.totalPages))

	d.logger.Info().
		Str("endpoint", endpoint).
		Int("total_pages", state.totalPages).
		Dur("request_delay", d.pacer.Delay()).
		Msg("Starting sequential crawl")

	d.accept(state, 1, first)

	for page := 2; page <= state.totalPages; page++ {
		if err := d.pacer.Wait(ctx); err != nil {
			return nil, d.abort(state, page, fmt.Errorf("pace before page %d: %w", page, err))
		}

		p, err := d.fetch(ctx, endpoint, page)
		if err != nil {
			return nil, d.abort(state, page, err)
		}

		d.accept(state, page, p)
	}

	d.logger.Info().
		Str("endpoint", endpoint).
		Int("pages", state.page).
		Int("records", len(state.records)).
		Dur("duration", d.now().Sub(state.started)).
		Msg("Crawl complete")

	return state.records, nil
}

func (d *Driver) fetch(ctx context.Context, endpoint string, page int) (*catalogue.Page, error) {
	p, err := d.fetcher.Fetch(ctx, endpoint, catalogue.Query{
		Type:  d.config.Type,
		Page:  page,
		Limit: d.config.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", page, err)
	}
	return p, nil
}

// accept appends the page's records and reports progress.
func (d *Driver) accept(state *crawlState, page int, p *catalogue.Page) {
	state.page = page
	state.records = append(state.records, catalogue.Extract(p.Items)...)
	crawlPagesTotal.Inc()

	elapsed := d.now().Sub(state.started)
	progress := Progress{
		Page:       page,
		TotalPages: state.totalPages,
		Records:    len(state.records),
		Elapsed:    elapsed,
		ETA:        Estimate(page, state.totalPages, elapsed),
	}

	crawlRecords.Set(float64(progress.Records))
	crawlETASeconds.Set(progress.ETA.Seconds())

	d.logger.Info().
		Int("page", progress.Page).
		Int("total_pages", progress.TotalPages).
		Int("items", len(p.Items)).
		Int("records", progress.Records).
		Dur("elapsed", progress.Elapsed).
		Dur("eta", progress.ETA).
		Msg("Page collected")

	if d.onProgress != nil {
		d.onProgress(progress)
	}
}

func (d *Driver) abort(state *crawlState, page int, err error) error {
	crawlFailuresTotal.Inc()
	crawlETASeconds.Set(0)

	d.logger.Error().
		Err(err).
		Int("page", page).
		Int("total_pages", state.totalPages).
		Int("records_discarded", len(state.records)).
		Msg("Crawl aborted")

	return err
}
