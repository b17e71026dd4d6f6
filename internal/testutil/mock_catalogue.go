// Package testutil provides testing utilities for the catalogue crawler.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// ListingPath is the path the mock serves the listing on.
const ListingPath = "/v4/anime"

// RecordedRequest captures one request received by the mock.
type RecordedRequest struct {
	Page   int
	Query  url.Values
	Header http.Header
	At     time.Time
}

// MockCatalogue is a configurable mock of the paginated listing API.
type MockCatalogue struct {
	server *httptest.Server

	mu       sync.Mutex
	pages    map[int]string
	scripted map[int][]int
	status   map[int]int
	expires  time.Duration
	requests []RecordedRequest
}

// NewMockCatalogue starts a new mock listing server.
func NewMockCatalogue() *MockCatalogue {
	mock := &MockCatalogue{
		pages:    make(map[int]string),
		scripted: make(map[int][]int),
		status:   make(map[int]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(ListingPath, mock.handle)
	mock.server = httptest.NewServer(mux)

	return mock
}

// URL returns the full listing endpoint URL.
func (m *MockCatalogue) URL() string {
	return m.server.URL + ListingPath
}

// Close shuts down the mock server.
func (m *MockCatalogue) Close() {
	m.server.Close()
}

// SetPage sets the raw body served for a page.
func (m *MockCatalogue) SetPage(page int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page] = body
}

// SetPages serves len(sizes) pages, page i+1 holding sizes[i] items, all
// reporting len(sizes) as last visible page.
func (m *MockCatalogue) SetPages(sizes ...int) {
	for i, size := range sizes {
		m.SetPage(i+1, BuildPage(i+1, len(sizes), size))
	}
}

// ScriptStatus makes the next requests for page answer with the given
// statuses, in order, before the page body is served.
func (m *MockCatalogue) ScriptStatus(page int, statuses ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripted[page] = append(m.scripted[page], statuses...)
}

// SetStatus makes every request for page answer with status.
func (m *MockCatalogue) SetStatus(page int, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[page] = status
}

// SetExpires adds an Expires header d in the future to successful responses.
func (m *MockCatalogue) SetExpires(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expires = d
}

// RequestCount returns the number of requests received.
func (m *MockCatalogue) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of all recorded requests, in arrival order.
func (m *MockCatalogue) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// PageRequests returns how many requests asked for page.
func (m *MockCatalogue) PageRequests(page int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.requests {
		if r.Page == page {
			n++
		}
	}
	return n
}

func (m *MockCatalogue) handle(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, err := strconv.Atoi(query.Get("page"))
	if err != nil {
		page = 1
	}

	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Page:   page,
		Query:  query,
		Header: r.Header.Clone(),
		At:     time.Now(),
	})

	status := 0
	if queue := m.scripted[page]; len(queue) > 0 {
		status = queue[0]
		m.scripted[page] = queue[1:]
	} else if s, ok := m.status[page]; ok {
		status = s
	}
	body, ok := m.pages[page]
	expires := m.expires
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	if status != 0 {
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"status":%d,"type":"MockError","message":%q}`, status, http.StatusText(status))
		return
	}

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"status":404,"type":"BadResponseException","message":"Resource does not exist"}`)
		return
	}

	if expires > 0 {
		w.Header().Set("Expires", time.Now().Add(expires).UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, body)
}

// ItemTitle is the title BuildPage gives to item i of page.
func ItemTitle(page, i int) string {
	return fmt.Sprintf("Title %d-%d", page, i)
}

// BuildPage renders a listing body with n items. Every third item has a
// null score and every item carries the genres "Action" and "Drama".
func BuildPage(page, lastPage, n int) string {
	type named struct {
		Name string `json:"name"`
	}
	type item struct {
		Title string `json:"title"`
		Aired struct {
			Prop struct {
				From struct {
					Year *int `json:"year"`
				} `json:"from"`
			} `json:"prop"`
		} `json:"aired"`
		Score        *float64 `json:"score"`
		ScoredBy     *int     `json:"scored_by"`
		Members      *int     `json:"members"`
		Rank         *int     `json:"rank"`
		Genres       []named  `json:"genres"`
		Demographics []named  `json:"demographics"`
	}

	items := make([]item, 0, n)
	for i := 0; i < n; i++ {
		var it item
		it.Title = ItemTitle(page, i)
		year := 2000 + i
		it.Aired.Prop.From.Year = &year
		if i%3 != 0 {
			score := 7.5
			it.Score = &score
		}
		members := 1000 * (i + 1)
		it.Members = &members
		it.Genres = []named{{Name: "Action"}, {Name: "Drama"}}
		it.Demographics = []named{}
		items = append(items, it)
	}

	body := map[string]any{
		"pagination": map[string]any{
			"last_visible_page": lastPage,
			"has_next_page":     page < lastPage,
			"current_page":      page,
			"items": map[string]int{
				"count":    n,
				"per_page": 25,
			},
		},
		"data": items,
	}

	out, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	return string(out)
}
