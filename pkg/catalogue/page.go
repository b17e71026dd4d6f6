// Package catalogue defines the wire types of the catalogue listing API,
// the normalized Record extracted from each listing item and the fixed
// column layout of the persisted dataset.
package catalogue

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// DefaultLimit is the page size requested from the listing endpoint.
const DefaultLimit = 25

// DefaultType is the catalogue entry type crawled by default.
const DefaultType = "tv"

// ErrMalformedPage is returned when a successful response lacks the
// pagination block, the data list or a required item field.
var ErrMalformedPage = errors.New("malformed page")

// Query is the parameter set of a single listing request.
type Query struct {
	// Type filters the listing by entry type (e.g. "tv").
	Type string

	// Page is the 1-based page cursor.
	Page int

	// Limit is the number of items per page.
	Limit int
}

// Validate checks the page cursor and limit.
func (q Query) Validate() error {
	if q.Page < 1 {
		return fmt.Errorf("page cursor must be >= 1 (got %d)", q.Page)
	}
	if q.Limit <= 0 {
		return fmt.Errorf("limit must be positive (got %d)", q.Limit)
	}
	return nil
}

// Values renders the query as URL parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Type != "" {
		v.Set("type", q.Type)
	}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	return v
}

// NamedEntry is a genre or demographic reference inside an item.
type NamedEntry struct {
	MalID int    `json:"mal_id"`
	Type  string `json:"type"`
	Name  string `json:"name"`
}

// RawItem is one listing item as returned by the API. Only the fields the
// extractor reads are declared; nullable values are pointers.
type RawItem struct {
	Title *string `json:"title"`
	Aired struct {
		Prop struct {
			From struct {
				Year *int `json:"year"`
			} `json:"from"`
		} `json:"prop"`
	} `json:"aired"`
	Score        *float64     `json:"score"`
	ScoredBy     *int         `json:"scored_by"`
	Members      *int         `json:"members"`
	Rank         *int         `json:"rank"`
	Genres       []NamedEntry `json:"genres"`
	Demographics []NamedEntry `json:"demographics"`
}

// Page is one decoded listing response. It lives for a single
// fetch/extract cycle.
type Page struct {
	Items           []RawItem
	CurrentPage     int
	LastVisiblePage int
	HasNextPage     bool
	PerPage         int
}

type pageEnvelope struct {
	Pagination *struct {
		LastVisiblePage *int `json:"last_visible_page"`
		HasNextPage     bool `json:"has_next_page"`
		CurrentPage     int  `json:"current_page"`
		Items           struct {
			Count   int `json:"count"`
			Total   int `json:"total"`
			PerPage int `json:"per_page"`
		} `json:"items"`
	} `json:"pagination"`
	Data *[]RawItem `json:"data"`
}

// DecodePage parses a listing response body. Anything that prevents the
// crawl from knowing its remaining work, or an item without a title, is
// reported as ErrMalformedPage.
func DecodePage(body []byte) (*Page, error) {
	var env pageEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}

	if env.Pagination == nil {
		return nil, fmt.Errorf("%w: missing pagination", ErrMalformedPage)
	}
	if env.Pagination.LastVisiblePage == nil {
		return nil, fmt.Errorf("%w: missing pagination.last_visible_page", ErrMalformedPage)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedPage)
	}

	for i, item := range *env.Data {
		if item.Title == nil {
			return nil, fmt.Errorf("%w: item %d has no title", ErrMalformedPage, i)
		}
	}

	return &Page{
		Items:           *env.Data,
		CurrentPage:     env.Pagination.CurrentPage,
		LastVisiblePage: *env.Pagination.LastVisiblePage,
		HasNextPage:     env.Pagination.HasNextPage,
		PerPage:         env.Pagination.Items.PerPage,
	}, nil
}
