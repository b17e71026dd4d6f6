package pagination

import (
	"fmt"
	"time"
)

// Progress is the crawl telemetry emitted after every fetched page.
type Progress struct {
	Page       int
	TotalPages int
	Records    int
	Elapsed    time.Duration
	ETA        time.Duration
}

// ProgressFunc receives progress updates. It runs on the crawl goroutine and
// should return quickly.
type ProgressFunc func(Progress)

// Percent returns the fraction of pages done in percent.
func (p Progress) Percent() float64 {
	if p.TotalPages <= 0 {
		return 100
	}
	return float64(p.Page) / float64(p.TotalPages) * 100
}

func (p Progress) String() string {
	return fmt.Sprintf("page %d/%d, %d records, elapsed %s, ETA %s",
		p.Page, p.TotalPages, p.Records,
		p.Elapsed.Round(time.Second), p.ETA.Round(time.Second))
}

// Estimate projects the remaining crawl time from the mean time per page so
// far: elapsed / pagesDone * (totalPages - pagesDone).
func Estimate(pagesDone, totalPages int, elapsed time.Duration) time.Duration {
	if pagesDone <= 0 {
		return 0
	}
	remaining := totalPages - pagesDone
	if remaining <= 0 {
		return 0
	}
	perPage := elapsed / time.Duration(pagesDone)
	return perPage * time.Duration(remaining)
}
