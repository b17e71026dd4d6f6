// Package sink persists the records of a completed crawl.
//
// A sink is only handed the full accumulator of a successful crawl; a crawl
// that aborts never reaches it. Implementations write all-or-nothing: the CSV
// sink renames a finished temp file into place and the Postgres sink inserts
// inside one transaction.
package sink

import (
	"context"
	"fmt"

	"github.com/Sternrassler/catalogue-crawler/pkg/catalogue"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for sink operations.
var (
	rowsWrittenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalogue_sink_rows_written_total",
		Help: "Total records persisted by sink",
	}, []string{"sink"})

	writeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalogue_sink_errors_total",
		Help: "Total failed sink writes",
	}, []string{"sink"})

	writeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalogue_sink_write_duration_seconds",
		Help:    "Duration of a complete sink write",
		Buckets: prometheus.DefBuckets,
	}, []string{"sink"})
)

// Sink persists an ordered record collection.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// Write persists records in the given order.
	Write(ctx context.Context, records []catalogue.Record) error
}

// WriteError reports a sink that failed after the sinks in Written had
// already persisted the dataset.
type WriteError struct {
	Sink    string
	Written []string
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s sink: %v", e.Sink, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// MultiSink writes to several sinks in order and stops at the first failure.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks. Nil entries are skipped.
func NewMultiSink(sinks ...Sink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Name implements Sink.
func (m *MultiSink) Name() string {
	return "multi"
}

// Len returns the number of combined sinks.
func (m *MultiSink) Len() int {
	return len(m.sinks)
}

// Write implements Sink.
func (m *MultiSink) Write(ctx context.Context, records []catalogue.Record) error {
	written := make([]string, 0, len(m.sinks))
	for _, s := range m.sinks {
		if err := s.Write(ctx, records); err != nil {
			return &WriteError{Sink: s.Name(), Written: written, Err: err}
		}
		written = append(written, s.Name())
	}
	return nil
}
