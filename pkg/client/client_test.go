package client

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/catalogue-crawler/internal/testutil"
	"github.com/Sternrassler/catalogue-crawler/pkg/cache"
	"github.com/Sternrassler/catalogue-crawler/pkg/catalogue"
)

const testUserAgent = "CatalogueCrawlerTest/1.0"

func newTestClient(t *testing.T, mutate func(*Config)) (*Client, *recordingSleep) {
	t.Helper()

	cfg := DefaultConfig(testUserAgent)
	cfg.Timeout = 5 * time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rec := &recordingSleep{}
	c.SetSleep(rec.sleep)
	return c, rec
}

func firstPage() catalogue.Query {
	return catalogue.Query{Type: catalogue.DefaultType, Page: 1, Limit: catalogue.DefaultLimit}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid config",
			config: DefaultConfig(testUserAgent),
		},
		{
			name:        "empty user agent",
			config:      DefaultConfig(""),
			expectError: true,
			errorMsg:    "user-agent is required",
		},
		{
			name: "zero retries",
			config: Config{
				UserAgent:  testUserAgent,
				MaxRetries: 0,
			},
			expectError: true,
			errorMsg:    "max_retries must be >= 1 (got 0)",
		},
		{
			name: "negative backoff",
			config: Config{
				UserAgent:   testUserAgent,
				MaxRetries:  5,
				BackoffBase: -time.Second,
			},
			expectError: true,
			errorMsg:    "backoff_base cannot be negative (got -1s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.config)

			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got nil")
				}
				if err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if c == nil {
				t.Fatal("Expected client, got nil")
			}
		})
	}
}

func TestFetch_Success(t *testing.T) {
	mock := testutil.NewMockCatalogue()
	defer mock.Close()
	mock.SetPages(25, 7)

	c, rec := newTestClient(t, nil)

	page, err := c.Fetch(context.Background(), mock.URL(), catalogue.Query{Type: "tv", Page: 2, Limit: 25})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if len(page.Items) != 7 {
		t.Errorf("len(Items) = %d, want 7", len(page.Items))
	}
	if page.LastVisiblePage != 2 {
		t.Errorf("LastVisiblePage = %d, want 2", page.LastVisiblePage)
	}
	if len(rec.waits) != 0 {
		t.Errorf("unexpected backoff waits: %v", rec.waits)
	}

	reqs := mock.Requests()
	if len(reqs) != 1 {
		t.Fatalf("RequestCount = %d, want 1", len(reqs))
	}
	q := reqs[0].Query
	if q.Get("type") != "tv" || q.Get("page") != "2" || q.Get("limit") != "25" {
		t.Errorf("query = %v, want type=tv page=2 limit=25", q)
	}
	if ua := reqs[0].Header.Get("User-Agent"); ua != testUserAgent {
		t.Errorf("User-Agent = %q, want %q", ua, testUserAgent)
	}
	if accept := reqs[0].Header.Get("Accept"); accept != "application/json" {
		t.Errorf("Accept = %q, want application/json", accept)
	}
}

func TestFetch_ThrottledThenSuccess(t *testing.T) {
	mock := testutil.NewMockCatalogue()
	defer mock.Close()
	mock.SetPages(3)
	mock.ScriptStatus(1, http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusTooManyRequests)

	c, rec := newTestClient(t, func(cfg *Config) {
		cfg.BackoffBase = 10 * time.Millisecond
	})

	page, err := c.Fetch(context.Background(), mock.URL(), firstPage())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(page.Items) != 3 {
		t.Errorf("len(Items) = %d, want 3", len(page.Items))
	}

	if got := mock.RequestCount(); got != 4 {
		t.Errorf("RequestCount = %d, want 4 (3 throttled + 1 success)", got)
	}

	want := []time.Duration{20 * time.Millisecond, 40 * time.Millisecond, 80 * time.Millisecond}
	if len(rec.waits) != len(want) {
		t.Fatalf("waits = %v, want %v", rec.waits, want)
	}
	for i := range want {
		if rec.waits[i] != want[i] {
			t.Errorf("retry %d waited %v, want %v", i+1, rec.waits[i], want[i])
		}
	}
}

func TestFetch_AlwaysThrottled(t *testing.T) {
	mock := testutil.NewMockCatalogue()
	defer mock.Close()
	mock.SetPages(3)
	mock.SetStatus(1, http.StatusTooManyRequests)

	c, _ := newTestClient(t, nil)

	_, err := c.Fetch(context.Background(), mock.URL(), firstPage())
	if !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("Fetch() error = %v, want ErrRateLimitExceeded", err)
	}
	if got := mock.RequestCount(); got != 5 {
		t.Errorf("RequestCount = %d, want exactly 5", got)
	}
}

func TestFetch_ConfiguredMaxRetries(t *testing.T) {
	mock := testutil.NewMockCatalogue()
	defer mock.Close()
	mock.SetPages(3)
	mock.SetStatus(1, http.StatusTooManyRequests)

	c, _ := newTestClient(t, func(cfg *Config) { cfg.MaxRetries = 2 })

	if _, err := c.Fetch(context.Background(), mock.URL(), firstPage()); !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("Fetch() error = %v, want ErrRateLimitExceeded", err)
	}
	if got := mock.RequestCount(); got != 2 {
		t.Errorf("RequestCount = %d, want 2", got)
	}
}

func TestFetch_HTTPErrorNotRetried(t *testing.T) {
	statuses := []int{
		http.StatusBadRequest,
		http.StatusNotFound,
		http.StatusInternalServerError,
		http.StatusServiceUnavailable,
	}

	for _, status := range statuses {
		t.Run(http.StatusText(status), func(t *testing.T) {
			mock := testutil.NewMockCatalogue()
			defer mock.Close()
			mock.SetPages(3)
			mock.SetStatus(1, status)

			c, rec := newTestClient(t, nil)

			_, err := c.Fetch(context.Background(), mock.URL(), firstPage())

			var httpErr *HTTPError
			if !errors.As(err, &httpErr) {
				t.Fatalf("Fetch() error = %v, want *HTTPError", err)
			}
			if httpErr.StatusCode != status {
				t.Errorf("StatusCode = %d, want %d", httpErr.StatusCode, status)
			}
			if got := mock.RequestCount(); got != 1 {
				t.Errorf("RequestCount = %d, want 1", got)
			}
			if len(rec.waits) != 0 {
				t.Errorf("unexpected backoff waits: %v", rec.waits)
			}
		})
	}
}

func TestFetch_MalformedPage(t *testing.T) {
	mock := testutil.NewMockCatalogue()
	defer mock.Close()
	mock.SetPage(1, `{"data":[{"title":"orphan"}]}`)

	c, _ := newTestClient(t, nil)

	_, err := c.Fetch(context.Background(), mock.URL(), firstPage())
	if !errors.Is(err, catalogue.ErrMalformedPage) {
		t.Fatalf("Fetch() error = %v, want ErrMalformedPage", err)
	}
	if got := mock.RequestCount(); got != 1 {
		t.Errorf("RequestCount = %d, want 1", got)
	}
}

func TestFetch_InvalidQuery(t *testing.T) {
	c, _ := newTestClient(t, nil)

	tests := []struct {
		name     string
		endpoint string
		query    catalogue.Query
	}{
		{name: "page zero", endpoint: "http://example.test/v4/anime", query: catalogue.Query{Page: 0, Limit: 25}},
		{name: "relative endpoint", endpoint: "/v4/anime", query: firstPage()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Fetch(context.Background(), tt.endpoint, tt.query)
			if !errors.Is(err, ErrInvalidQuery) {
				t.Errorf("Fetch() error = %v, want ErrInvalidQuery", err)
			}
		})
	}
}

func TestFetch_CacheHitSkipsRequest(t *testing.T) {
	mock := testutil.NewMockCatalogue()
	defer mock.Close()
	mock.SetPages(4)
	mock.SetExpires(time.Hour)

	manager := cache.NewManager(cache.Config{MemorySize: 16, MemoryTTL: time.Hour})
	c, _ := newTestClient(t, func(cfg *Config) { cfg.Cache = manager })

	for i := 0; i < 3; i++ {
		page, err := c.Fetch(context.Background(), mock.URL(), firstPage())
		if err != nil {
			t.Fatalf("Fetch() #%d error = %v", i, err)
		}
		if len(page.Items) != 4 {
			t.Errorf("Fetch() #%d len(Items) = %d, want 4", i, len(page.Items))
		}
	}

	if got := mock.RequestCount(); got != 1 {
		t.Errorf("RequestCount = %d, want 1 (later fetches served from cache)", got)
	}
}

func TestFetch_FailuresAreNotCached(t *testing.T) {
	mock := testutil.NewMockCatalogue()
	defer mock.Close()
	mock.SetPages(2)
	mock.ScriptStatus(1, http.StatusInternalServerError)

	manager := cache.NewManager(cache.Config{})
	c, _ := newTestClient(t, func(cfg *Config) { cfg.Cache = manager })

	if _, err := c.Fetch(context.Background(), mock.URL(), firstPage()); err == nil {
		t.Fatal("expected first Fetch to fail")
	}
	if manager.Len() != 0 {
		t.Errorf("cache Len() = %d after failure, want 0", manager.Len())
	}

	if _, err := c.Fetch(context.Background(), mock.URL(), firstPage()); err != nil {
		t.Fatalf("second Fetch() error = %v", err)
	}
	if manager.Len() != 1 {
		t.Errorf("cache Len() = %d after success, want 1", manager.Len())
	}
}
