package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// CacheKey identifies a cached listing response.
type CacheKey struct {
	// Endpoint is the listing URL without query (e.g. "https://api.jikan.moe/v4/anime")
	Endpoint string

	// QueryParams are the request query parameters (type, page, limit)
	QueryParams url.Values
}

// String generates a deterministic cache key string.
// Format: catalogue:endpoint:param1=val1:param2=val2
//
// Example:
//
//	catalogue:https://api.jikan.moe/v4/anime:limit=25:page=2:type=tv
func (k CacheKey) String() string {
	parts := []string{"catalogue"}

	endpoint := strings.TrimRight(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.QueryParams.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}
