// Package cache provides an optional response cache for catalogue listing
// pages.
//
// Two layers are consulted in order:
//
//   - memory: an in-process expirable LRU, always present
//   - redis: a shared Redis instance, present when a client is configured
//
// Entries expire according to the upstream Expires header, falling back to a
// configured TTL when the header is missing or unparseable. Only successful
// responses that decoded as a valid page are stored; throttled or failed
// responses never enter the cache.
//
// # Basic Usage
//
//	manager := cache.NewManager(cache.Config{
//		MemorySize: 512,
//		MemoryTTL:  10 * time.Minute,
//		Redis:      redisClient, // optional
//	})
//
//	key := cache.CacheKey{
//		Endpoint:    "https://api.jikan.moe/v4/anime",
//		QueryParams: url.Values{"page": []string{"2"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from upstream, then:
//		entry, _ = cache.ResponseToEntry(resp, cache.DefaultTTL)
//		_ = manager.Set(ctx, key, entry)
//	}
//
// # Metrics
//
//   - catalogue_cache_hits_total{layer} - hits by layer (memory, redis)
//   - catalogue_cache_misses_total - misses across all layers
//   - catalogue_cache_size_bytes{layer} - bytes written per layer
//   - catalogue_cache_evictions_total - entries removed from the in-process layer
//   - catalogue_cache_errors_total{operation} - Redis operation errors
package cache
