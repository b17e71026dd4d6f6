package pagination

import (
	"testing"
	"time"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name       string
		pagesDone  int
		totalPages int
		elapsed    time.Duration
		want       time.Duration
	}{
		{name: "halfway", pagesDone: 5, totalPages: 10, elapsed: 10 * time.Second, want: 10 * time.Second},
		{name: "first page", pagesDone: 1, totalPages: 1000, elapsed: 2 * time.Second, want: 1998 * time.Second},
		{name: "complete", pagesDone: 10, totalPages: 10, elapsed: time.Minute, want: 0},
		{name: "no pages done", pagesDone: 0, totalPages: 10, elapsed: time.Minute, want: 0},
		{name: "negative pages done", pagesDone: -1, totalPages: 10, elapsed: time.Minute, want: 0},
		{name: "total zero", pagesDone: 1, totalPages: 0, elapsed: time.Second, want: 0},
		{name: "zero elapsed", pagesDone: 3, totalPages: 9, elapsed: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Estimate(tt.pagesDone, tt.totalPages, tt.elapsed); got != tt.want {
				t.Errorf("Estimate(%d, %d, %v) = %v, want %v", tt.pagesDone, tt.totalPages, tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestProgress_Percent(t *testing.T) {
	tests := []struct {
		progress Progress
		want     float64
	}{
		{progress: Progress{Page: 1, TotalPages: 4}, want: 25},
		{progress: Progress{Page: 4, TotalPages: 4}, want: 100},
		{progress: Progress{Page: 1, TotalPages: 0}, want: 100},
	}

	for _, tt := range tests {
		if got := tt.progress.Percent(); got != tt.want {
			t.Errorf("%+v.Percent() = %v, want %v", tt.progress, got, tt.want)
		}
	}
}

func TestProgress_String(t *testing.T) {
	p := Progress{Page: 3, TotalPages: 10, Records: 75, Elapsed: 1500 * time.Millisecond, ETA: 3500 * time.Millisecond}

	want := "page 3/10, 75 records, elapsed 2s, ETA 4s"
	if got := p.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
