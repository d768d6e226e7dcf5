// Package metrics provides the centralized Prometheus metrics registry
// for the Pokédex client. All metrics are defined in their respective
// packages (client, cache) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the Pokédex client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - pokedex_cache_hits_total{layer} (Counter): Cache hits by layer (l1, store)
//   - pokedex_cache_misses_total (Counter): Cache misses
//   - pokedex_cache_errors_total{operation} (Counter): Cache operation errors
//   - pokedex_cache_evictions_total (Counter): Entries removed by expiry cleanup
//   - pokedex_cache_dropped_writes_total (Counter): Writes dropped under quota pressure
//   - pokedex_cache_size_kilobytes (Gauge): Serialized size of the cache namespace
//
// Request Metrics (pkg/client):
//   - pokedex_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - pokedex_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - pokedex_errors_total{class} (Counter): Errors by class (auth, client, server, network)
//
// Session Metrics (pkg/client):
//   - pokedex_token_refreshes_total{outcome} (Counter): Token refresh attempts by outcome
//   - pokedex_session_expired_total (Counter): Failed-refresh episodes ending the session
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(pokedex_cache_hits_total[5m])) /
//   (sum(rate(pokedex_cache_hits_total[5m])) + sum(rate(pokedex_cache_misses_total[5m])))
//
//   # Refresh Failure Rate
//   rate(pokedex_token_refreshes_total{outcome="failure"}[5m])
//
//   # Request Error Rate
//   rate(pokedex_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(pokedex_request_duration_seconds_bucket[5m]))
//
//   # Quota Pressure
//   rate(pokedex_cache_dropped_writes_total[5m])
