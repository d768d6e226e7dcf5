package pokedex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/pokedexlabs/pokedex-client/pkg/cache"
	"github.com/pokedexlabs/pokedex-client/pkg/pagination"
)

// pagedFetcher adapts the API's cache-through read path to the batch
// fetcher's page interface.
type pagedFetcher struct {
	api *API
}

// FetchPage fetches one page of resource and reports the total count.
func (f *pagedFetcher) FetchPage(ctx context.Context, resource string, limit, offset int) ([][]byte, int, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	params := map[string]string{
		"limit":  strconv.Itoa(limit),
		"offset": strconv.Itoa(offset),
	}

	ttl := cache.TTLReference
	if resource == "pokemon" {
		ttl = cache.TTLPokemonList
	}

	var out List[json.RawMessage]
	key := cache.Key{Resource: resource, Params: params}
	if err := f.api.fetch(ctx, key, "/"+resource, query, ttl, &out); err != nil {
		return nil, 0, err
	}

	data := make([][]byte, len(out.Results))
	for i, raw := range out.Results {
		data[i] = raw
	}
	return data, out.Count, nil
}

// AllPokemon fetches the entire Pokédex, paging in parallel. Each page
// lands in the shared cache, so a repeat export within the list TTL is
// served without network traffic.
func (a *API) AllPokemon(ctx context.Context) ([]Pokemon, error) {
	fetcher := pagination.NewBatchFetcher(&pagedFetcher{api: a}, pagination.DefaultConfig())

	raw, err := fetcher.FetchAll(ctx, "pokemon")
	if err != nil {
		return nil, err
	}

	all := make([]Pokemon, 0, len(raw))
	for _, entry := range raw {
		var p Pokemon
		if err := json.Unmarshal(entry, &p); err != nil {
			return nil, fmt.Errorf("decode pokemon entry: %w", err)
		}
		all = append(all, p)
	}
	return all, nil
}
