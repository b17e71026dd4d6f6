package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/Sternrassler/catalogue-crawler/pkg/catalogue"
)

type recordingSink struct {
	name  string
	err   error
	calls *[]string
	got   []catalogue.Record
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Write(_ context.Context, records []catalogue.Record) error {
	*s.calls = append(*s.calls, s.name)
	s.got = records
	return s.err
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func sampleRecords() []catalogue.Record {
	return []catalogue.Record{
		{
			Title:        "Fullmetal Alchemist: Brotherhood",
			Year:         intPtr(2009),
			Score:        floatPtr(9.1),
			ScoredBy:     intPtr(2100000),
			Members:      intPtr(3400000),
			Rank:         intPtr(1),
			Genres:       "Action, Adventure, Drama, Fantasy",
			Demographics: "Shounen",
		},
		{
			Title:  "Untitled, \"Pilot\"",
			Genres: "Comedy",
		},
	}
}

func TestMultiSink_WritesInOrder(t *testing.T) {
	var calls []string
	a := &recordingSink{name: "a", calls: &calls}
	b := &recordingSink{name: "b", calls: &calls}

	m := NewMultiSink(a, nil, b)
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (nil skipped)", m.Len())
	}

	records := sampleRecords()
	if err := m.Write(context.Background(), records); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if len(calls) != 2 || calls[0] != "a" || calls[1] != "b" {
		t.Errorf("calls = %v, want [a b]", calls)
	}
	if len(b.got) != len(records) {
		t.Errorf("sink b got %d records, want %d", len(b.got), len(records))
	}
}

func TestMultiSink_StopsAtFirstError(t *testing.T) {
	sentinel := errors.New("disk full")

	var calls []string
	a := &recordingSink{name: "a", calls: &calls, err: sentinel}
	b := &recordingSink{name: "b", calls: &calls}

	err := NewMultiSink(a, b).Write(context.Background(), sampleRecords())
	if !errors.Is(err, sentinel) {
		t.Fatalf("Write() error = %v, want sentinel", err)
	}
	if err.Error() != "a sink: disk full" {
		t.Errorf("Error() = %q, want sink name prefix", err.Error())
	}
	if len(calls) != 1 {
		t.Errorf("calls = %v, want only [a]", calls)
	}

	var writeErr *WriteError
	if errors.As(err, &writeErr) && len(writeErr.Written) != 0 {
		t.Errorf("Written = %v, want none", writeErr.Written)
	}
}

func TestMultiSink_ReportsWrittenSinks(t *testing.T) {
	sentinel := errors.New("connection reset")

	var calls []string
	csvLike := &recordingSink{name: "csv", calls: &calls}
	pgLike := &recordingSink{name: "postgres", calls: &calls, err: sentinel}

	err := NewMultiSink(csvLike, pgLike).Write(context.Background(), sampleRecords())

	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("Write() error = %v, want *WriteError", err)
	}
	if writeErr.Sink != "postgres" {
		t.Errorf("Sink = %q, want postgres", writeErr.Sink)
	}
	if len(writeErr.Written) != 1 || writeErr.Written[0] != "csv" {
		t.Errorf("Written = %v, want [csv]", writeErr.Written)
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("Write() error = %v, want wrapped sentinel", err)
	}
}

func TestMultiSink_Empty(t *testing.T) {
	if err := NewMultiSink().Write(context.Background(), sampleRecords()); err != nil {
		t.Errorf("Write() on empty MultiSink error = %v", err)
	}
}
