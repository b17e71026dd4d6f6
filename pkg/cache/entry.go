package cache

import "time"

// CacheEntry is one stored listing response body with its freshness window.
type CacheEntry struct {
	Data        []byte    `json:"data"`
	ContentType string    `json:"content_type,omitempty"`
	StatusCode  int       `json:"status_code"`
	CachedAt    time.Time `json:"cached_at"`

	// Expires comes from the upstream Expires header, or CachedAt plus the
	// fallback TTL.
	Expires time.Time `json:"expires"`
}

// IsExpired reports whether the entry is stale now.
func (e *CacheEntry) IsExpired() bool {
	return e.ExpiredAt(time.Now())
}

// ExpiredAt reports whether the entry is stale at t.
func (e *CacheEntry) ExpiredAt(t time.Time) bool {
	return !t.Before(e.Expires)
}

// TTL returns the remaining lifetime, 0 once expired.
func (e *CacheEntry) TTL() time.Duration {
	return max(time.Until(e.Expires), 0)
}

// Age returns how long ago the entry was stored.
func (e *CacheEntry) Age() time.Duration {
	return time.Since(e.CachedAt)
}
