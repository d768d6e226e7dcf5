// Command pokedex-proxy is a caching proxy in front of the Pokédex
// backend: it authenticates once, caches reference data in Redis, and
// exposes health and metrics endpoints.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pokedexlabs/pokedex-client/internal/config"
	"github.com/pokedexlabs/pokedex-client/pkg/cache"
	"github.com/pokedexlabs/pokedex-client/pkg/client"
	"github.com/pokedexlabs/pokedex-client/pkg/logging"
	"github.com/pokedexlabs/pokedex-client/pkg/pokedex"
	"github.com/pokedexlabs/pokedex-client/pkg/session"
)

func main() {
	configPath := flag.String("config", os.Getenv("POKEDEX_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
	}
	logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")

	store := cache.NewRedisStore(redisClient)

	var opts []cache.Option
	if cfg.Cache.L1Capacity > 0 {
		opts = append(opts, cache.WithL1(cfg.Cache.L1Capacity))
	}
	manager := cache.NewManager(store, opts...)

	// Reclaim space left behind by previous sessions.
	if removed := manager.ClearExpired(ctx); removed > 0 {
		logger.Info().Int("removed", removed).Msg("Startup cache cleanup")
	}

	sessionOpts := []session.Option{}
	if cfg.API.MirrorToken {
		sessionOpts = append(sessionOpts, session.WithMirror(store))
	}
	tokens := session.New(sessionOpts...)
	tokens.OnExpired(func() {
		logger.Warn().Msg("Session expired, proxy requests continue unauthenticated until next login")
	})

	apiClient, err := client.New(client.Config{
		BaseURL:   cfg.API.BaseURL,
		Tokens:    tokens,
		Timeout:   time.Duration(cfg.API.Timeout),
		UserAgent: cfg.API.UserAgent,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create API client")
	}

	if cfg.Cache.Warmup {
		go warmup(ctx, pokedex.New(apiClient, manager), logger)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(redisClient))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/cache/size", cacheSizeHandler(manager))
	mux.HandleFunc("/cache/clear", cacheClearHandler(manager))
	mux.HandleFunc("/api/", proxyHandler(apiClient, manager, ttlPolicyFrom(cfg.Cache)))

	logger.Info().
		Str("addr", cfg.Server.Addr).
		Str("upstream", cfg.API.BaseURL).
		Msg("Starting pokedex proxy")

	if err := http.ListenAndServe(cfg.Server.Addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

// warmup pulls the full Pokémon list through the paged fetcher so the
// first user requests land on a warm cache.
func warmup(ctx context.Context, api *pokedex.API, logger zerolog.Logger) {
	start := time.Now()
	all, err := api.AllPokemon(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Cache warmup incomplete")
		return
	}
	logger.Info().Int("entries", len(all)).Dur("duration", time.Since(start)).Msg("Cache warmup complete")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// readyHandler reports readiness based on the cache backend.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "redis unavailable: %v", err)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}
}

// cacheSizeHandler reports the serialized cache size in KB.
func cacheSizeHandler(manager *cache.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"size_kb": manager.SizeKB(r.Context())})
	}
}

// cacheClearHandler clears expired entries, or the whole namespace with
// ?scope=all. Wiping everything hits every feature at once, so it is
// POST-only and never the default.
func cacheClearHandler(manager *cache.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var removed int
		if r.URL.Query().Get("scope") == "all" {
			removed = manager.ClearAll(r.Context())
		} else {
			removed = manager.ClearExpired(r.Context())
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"removed": removed})
	}
}

// proxyHandler forwards /api/* to the backend through the interceptor
// pipeline. GET responses are cached under the path+query key with a
// TTL matching the resource's volatility.
func proxyHandler(apiClient *client.Client, manager *cache.Manager, ttls ttlPolicy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		endpoint := strings.TrimPrefix(r.URL.Path, "/api")

		key := cacheKey(endpoint, r.URL.RawQuery)
		if r.Method == http.MethodGet {
			if data, ok := manager.Get(r.Context(), key); ok {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Cache", "HIT")
				w.Write(data)
				return
			}
		}

		// Buffer the body so the pipeline can replay the request after
		// a token refresh; a streamed body would be consumed by the
		// first attempt.
		var body io.Reader
		if r.Body != nil {
			raw, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, fmt.Sprintf("read request body: %v", err), http.StatusBadRequest)
				return
			}
			if len(raw) > 0 {
				body = bytes.NewReader(raw)
			}
		}

		req, err := http.NewRequestWithContext(r.Context(), r.Method, strings.TrimSuffix(apiClient.BaseURL(), "/")+endpoint+queryString(r), body)
		if err != nil {
			http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "" {
			req.Header.Set("Content-Type", ct)
		}

		resp, err := apiClient.Do(req)
		if err != nil {
			http.Error(w, fmt.Sprintf("upstream request failed: %v", err), http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			http.Error(w, fmt.Sprintf("read upstream response: %v", err), http.StatusBadGateway)
			return
		}

		if r.Method == http.MethodGet && resp.StatusCode == http.StatusOK {
			manager.Set(r.Context(), key, json.RawMessage(respBody), ttls.ttlFor(endpoint))
		}

		for name, values := range resp.Header {
			for _, value := range values {
				w.Header().Add(name, value)
			}
		}
		w.Header().Set("X-Cache", "MISS")
		w.WriteHeader(resp.StatusCode)
		w.Write(respBody)
	}
}

// cacheKey builds the namespace key for a proxied GET.
func cacheKey(endpoint, rawQuery string) string {
	key := strings.Trim(endpoint, "/")
	if rawQuery != "" {
		key += ":" + rawQuery
	}
	return key
}

// queryString re-attaches the original query.
func queryString(r *http.Request) string {
	if r.URL.RawQuery == "" {
		return ""
	}
	return "?" + r.URL.RawQuery
}

// ttlPolicy maps resource volatility to cache TTLs.
type ttlPolicy struct {
	reference time.Duration
	list      time.Duration
	teams     time.Duration
}

// ttlPolicyFrom applies config overrides over the built-in defaults.
func ttlPolicyFrom(cfg config.CacheConfig) ttlPolicy {
	p := ttlPolicy{
		reference: cache.TTLReference,
		list:      cache.TTLPokemonList,
		teams:     cache.TTLTeams,
	}
	if cfg.ReferenceTTL > 0 {
		p.reference = time.Duration(cfg.ReferenceTTL)
	}
	if cfg.ListTTL > 0 {
		p.list = time.Duration(cfg.ListTTL)
	}
	if cfg.TeamsTTL > 0 {
		p.teams = time.Duration(cfg.TeamsTTL)
	}
	return p
}

// ttlFor picks the cache TTL by resource volatility.
func (p ttlPolicy) ttlFor(endpoint string) time.Duration {
	resource := strings.Trim(endpoint, "/")
	if strings.HasPrefix(resource, "pokemon") {
		return p.list
	}
	if strings.HasPrefix(resource, "teams") {
		return p.teams
	}
	return p.reference
}
