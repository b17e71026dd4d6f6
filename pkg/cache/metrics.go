package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Layer labels.
const (
	layerMemory = "memory"
	layerRedis  = "redis"
)

var (
	// CacheHits counts lookups served by a layer.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalogue_cache_hits_total",
		Help: "Total number of listing cache hits by layer",
	}, []string{"layer"})

	// CacheMisses counts lookups that missed every layer.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalogue_cache_misses_total",
		Help: "Total number of listing cache misses",
	})

	// CacheSize counts bytes written per layer.
	CacheSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "catalogue_cache_size_bytes",
		Help: "Bytes written to the listing cache by layer",
	}, []string{"layer"})

	// CacheEvictions counts entries leaving the memory layer, whether evicted
	// for size or age or deleted.
	CacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalogue_cache_evictions_total",
		Help: "Entries removed from the in-process layer",
	})

	// CacheErrors counts failed Redis operations.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalogue_cache_errors_total",
		Help: "Total number of cache operation errors",
	}, []string{"operation"})
)
