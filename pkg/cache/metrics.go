package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer (l1, store)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokedex_cache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokedex_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokedex_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "scan"
	)

	// CacheEvictions tracks entries removed by expiry cleanup
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokedex_cache_evictions_total",
			Help: "Total number of entries removed by expiry cleanup",
		},
	)

	// CacheDroppedWrites tracks writes dropped under storage quota pressure
	CacheDroppedWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokedex_cache_dropped_writes_total",
			Help: "Total number of cache writes dropped due to storage quota",
		},
	)

	// CacheSizeKB reports the serialized size of the cache namespace
	CacheSizeKB = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pokedex_cache_size_kilobytes",
			Help: "Serialized size of all namespaced cache entries in KB",
		},
	)
)
