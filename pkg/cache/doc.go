// Package cache provides the durable response cache shared by every
// Pokédex API access module.
//
// Responses are stored as versioned JSON envelopes under namespaced
// keys, each carrying its own TTL. A read of an absent, malformed, or
// expired entry behaves as a miss (expired and malformed entries are
// purged as a side effect), and no storage failure ever propagates to
// a caller: the cache degrades to always-miss behavior instead.
//
// # Basic Usage
//
//	store := cache.NewRedisStore(redisClient)
//	manager := cache.NewManager(store)
//
//	key := cache.Key{
//		Resource: "pokemon",
//		Params:   map[string]string{"limit": "20", "offset": "0"},
//	}
//
//	if data, ok := manager.Get(ctx, key.String()); ok {
//		// cache hit
//	}
//
//	manager.Set(ctx, key.String(), response, cache.TTLPokemonList)
//
// # Stores
//
// Two Store backends ship with the package: RedisStore for deployments
// and MemoryStore (optionally byte-quota-bounded) for tests and
// single-binary use. Writes rejected for quota reasons trigger a
// best-effort eviction of expired entries; the rejected write itself is
// dropped, not retried.
//
// # Housekeeping
//
// ClearExpired scans the namespace and removes every expired or
// malformed entry; call it once at process start to reclaim space left
// by previous sessions. ClearAll wipes the namespace and is meant for
// explicit user-triggered resets only. SizeKB reports the serialized
// size of the namespace for observability; no size-based eviction
// exists, expiration is purely time-based.
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - pokedex_cache_hits_total{layer} - cache hits (l1, store)
//   - pokedex_cache_misses_total - cache misses
//   - pokedex_cache_errors_total{operation} - storage operation errors
//   - pokedex_cache_evictions_total - entries removed by expiry cleanup
//   - pokedex_cache_dropped_writes_total - writes dropped under quota
//   - pokedex_cache_size_kilobytes - serialized namespace size
package cache
