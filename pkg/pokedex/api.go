// Package pokedex provides typed access to the Pokédex backend's
// resources. Every read goes through the shared response cache before
// touching the network, with a TTL matching the data's volatility.
package pokedex

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/pokedexlabs/pokedex-client/pkg/cache"
	"github.com/pokedexlabs/pokedex-client/pkg/client"
)

// List is a paginated response from a list endpoint.
type List[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}

// ListParams are the common pagination parameters.
type ListParams struct {
	Limit  int
	Offset int
}

// API is the entry point for all resource modules.
type API struct {
	client *client.Client
	cache  *cache.Manager
	logger zerolog.Logger

	// loads coalesces identical cache misses onto one network call.
	loads singleflight.Group
}

// New creates the resource API over a client and cache manager.
func New(c *client.Client, m *cache.Manager) *API {
	if c == nil {
		panic("client cannot be nil")
	}
	if m == nil {
		panic("cache manager cannot be nil")
	}
	return &API{
		client: c,
		cache:  m,
		logger: log.With().Str("component", "pokedex-api").Logger(),
	}
}

// Client returns the underlying HTTP client.
func (a *API) Client() *client.Client {
	return a.client
}

// Cache returns the shared cache manager.
func (a *API) Cache() *cache.Manager {
	return a.cache
}

// fetch is the cache-through read path: cache hit wins, identical
// concurrent misses share one network call, and the fresh response is
// written back with the caller's TTL.
func (a *API) fetch(ctx context.Context, key cache.Key, path string, query url.Values, ttl time.Duration, out any) error {
	k := key.String()

	if data, ok := a.cache.Get(ctx, k); ok {
		return json.Unmarshal(data, out)
	}

	v, err, _ := a.loads.Do(k, func() (interface{}, error) {
		var payload json.RawMessage
		if err := a.client.GetJSON(ctx, path, query, &payload); err != nil {
			return nil, err
		}
		a.cache.Set(ctx, k, payload, ttl)
		return payload, nil
	})
	if err != nil {
		return err
	}

	return json.Unmarshal(v.(json.RawMessage), out)
}

// listQuery converts pagination params to query values.
func listQuery(p ListParams) (url.Values, map[string]string) {
	query := url.Values{}
	params := map[string]string{}

	if p.Limit > 0 {
		v := strconv.Itoa(p.Limit)
		query.Set("limit", v)
		params["limit"] = v
	}
	if p.Offset > 0 {
		v := strconv.Itoa(p.Offset)
		query.Set("offset", v)
		params["offset"] = v
	}
	return query, params
}
