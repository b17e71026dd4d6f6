package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

func TestHandler_ExposesRegisteredMetrics(t *testing.T) {
	counter := promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalogue_metrics_handler_test_total",
		Help: "Registered by the handler test",
	})
	counter.Add(3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "catalogue_metrics_handler_test_total 3") {
		t.Errorf("metrics output missing test counter:\n%s", body)
	}
}

func TestServer_Routes(t *testing.T) {
	s := NewServer("127.0.0.1:0", zerolog.Nop())
	ts := httptest.NewServer(s.srv.Handler)
	defer ts.Close()

	tests := []struct {
		path     string
		contains string
	}{
		{path: "/health", contains: "OK"},
		{path: "/metrics", contains: "go_goroutines"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			if err != nil {
				t.Fatalf("GET %s error = %v", tt.path, err)
			}
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != http.StatusOK {
				t.Errorf("status = %d, want 200", resp.StatusCode)
			}
			if !strings.Contains(string(body), tt.contains) {
				t.Errorf("body missing %q", tt.contains)
			}
		})
	}
}

func TestServer_StartShutdown(t *testing.T) {
	s := NewServer("127.0.0.1:0", zerolog.Nop())
	s.Start()

	if err := s.Shutdown(time.Second); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
