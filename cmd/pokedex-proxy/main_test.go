package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pokedexlabs/pokedex-client/internal/config"
	"github.com/pokedexlabs/pokedex-client/internal/testutil"
	"github.com/pokedexlabs/pokedex-client/pkg/cache"
	"github.com/pokedexlabs/pokedex-client/pkg/client"
	"github.com/pokedexlabs/pokedex-client/pkg/session"
)

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestCacheSizeEndpoint(t *testing.T) {
	manager := cache.NewManager(cache.NewMemoryStore(0))
	manager.Set(httptest.NewRequest("GET", "/", nil).Context(), "k", strings.Repeat("x", 2048), time.Hour)

	req := httptest.NewRequest("GET", "/cache/size", nil)
	w := httptest.NewRecorder()

	cacheSizeHandler(manager)(w, req)

	var out map[string]int
	if err := json.NewDecoder(w.Result().Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out["size_kb"] < 2 {
		t.Errorf("size_kb = %d, want >= 2", out["size_kb"])
	}
}

func TestCacheClearEndpoint(t *testing.T) {
	manager := cache.NewManager(cache.NewMemoryStore(0))
	ctx := httptest.NewRequest("GET", "/", nil).Context()
	manager.Set(ctx, "a", "x", time.Hour)
	manager.Set(ctx, "b", "y", time.Hour)

	t.Run("get_rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		cacheClearHandler(manager)(w, httptest.NewRequest("GET", "/cache/clear", nil))
		if w.Result().StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("GET should be rejected, got %d", w.Result().StatusCode)
		}
	})

	t.Run("clear_all", func(t *testing.T) {
		w := httptest.NewRecorder()
		cacheClearHandler(manager)(w, httptest.NewRequest("POST", "/cache/clear?scope=all", nil))

		var out map[string]int
		json.NewDecoder(w.Result().Body).Decode(&out)
		if out["removed"] != 2 {
			t.Errorf("removed = %d, want 2", out["removed"])
		}
	})
}

func TestProxyHandler_CachesGET(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/items", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"count": 0, "results": []}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	})

	apiClient, err := client.New(client.Config{
		BaseURL:    mock.URL(),
		Tokens:     session.New(),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	manager := cache.NewManager(cache.NewMemoryStore(0))
	handler := proxyHandler(apiClient, manager, ttlPolicyFrom(config.CacheConfig{}))

	first := httptest.NewRecorder()
	handler(first, httptest.NewRequest("GET", "/api/items", nil))
	if got := first.Header().Get("X-Cache"); got != "MISS" {
		t.Errorf("first request X-Cache = %q, want MISS", got)
	}

	second := httptest.NewRecorder()
	handler(second, httptest.NewRequest("GET", "/api/items", nil))
	if got := second.Header().Get("X-Cache"); got != "HIT" {
		t.Errorf("second request X-Cache = %q, want HIT", got)
	}

	if got := mock.GetRequestCount(); got != 1 {
		t.Errorf("upstream saw %d requests, want 1", got)
	}
}

func TestProxyHandler_ReplaysBodyAfterRefresh(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.ValidToken = "fresh-token"

	var bodies []string
	mock.SetHandler("/teams", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(raw))

		if r.Header.Get("Authorization") != "Bearer refreshed-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "t1"}`))
	})

	tokens := session.New()
	apiClient, err := client.New(client.Config{
		BaseURL:    mock.URL(),
		Tokens:     tokens,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	tokens.SetAccessToken(context.Background(), "stale-token")

	manager := cache.NewManager(cache.NewMemoryStore(0))
	handler := proxyHandler(apiClient, manager, ttlPolicyFrom(config.CacheConfig{}))

	payload := `{"name": "Rain Dance", "pokemonIds": [7]}`
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest("POST", "/api/teams", strings.NewReader(payload)))

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("proxied status = %d, want 200", w.Result().StatusCode)
	}
	if len(bodies) != 2 {
		t.Fatalf("upstream saw %d attempts, want 2 (original and replay)", len(bodies))
	}
	if bodies[1] != payload {
		t.Errorf("replayed body = %q, want %q", bodies[1], payload)
	}
}

func TestTTLPolicy(t *testing.T) {
	defaults := ttlPolicyFrom(config.CacheConfig{})
	if got := defaults.ttlFor("/pokemon"); got != cache.TTLPokemonList {
		t.Errorf("pokemon ttl = %v, want %v", got, cache.TTLPokemonList)
	}
	if got := defaults.ttlFor("/teams/t1"); got != cache.TTLTeams {
		t.Errorf("teams ttl = %v, want %v", got, cache.TTLTeams)
	}
	if got := defaults.ttlFor("/items"); got != cache.TTLReference {
		t.Errorf("items ttl = %v, want %v", got, cache.TTLReference)
	}

	overridden := ttlPolicyFrom(config.CacheConfig{ListTTL: config.Duration(time.Minute)})
	if got := overridden.ttlFor("/pokemon"); got != time.Minute {
		t.Errorf("overridden pokemon ttl = %v, want 1m", got)
	}
	if got := overridden.ttlFor("/items"); got != cache.TTLReference {
		t.Errorf("override must not leak to reference ttl, got %v", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	promhttp.Handler().ServeHTTP(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "# HELP") || !strings.Contains(string(body), "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}
}
