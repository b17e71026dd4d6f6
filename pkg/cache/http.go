package cache

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTTL is the fallback TTL when no usable Expires header is present.
const DefaultTTL = 5 * time.Minute

// ResponseToEntry reads and closes the response body and converts the
// response to a CacheEntry. fallback is used as TTL when the response carries
// no parseable Expires header.
func ResponseToEntry(resp *http.Response, fallback time.Duration) (*CacheEntry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}
	if resp.Body == nil {
		return nil, fmt.Errorf("response body cannot be nil")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	now := time.Now()
	return &CacheEntry{
		Data:        body,
		Expires:     parseExpires(resp.Header, now, fallback),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		CachedAt:    now,
	}, nil
}

// parseExpires returns the Expires header time, now+fallback when the header
// is missing or invalid, and now when it lies in the past.
func parseExpires(headers http.Header, now time.Time, fallback time.Duration) time.Time {
	expiresStr := headers.Get("Expires")
	if expiresStr == "" {
		return now.Add(fallback)
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil {
		return now.Add(fallback)
	}

	if expires.Before(now) {
		return now
	}

	return expires
}
