package pokedex

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pokedexlabs/pokedex-client/pkg/cache"
)

// Pokemon is a single Pokédex entry.
type Pokemon struct {
	ID     int      `json:"id"`
	Name   string   `json:"name"`
	Types  []string `json:"types"`
	Height int      `json:"height"`
	Weight int      `json:"weight"`
	Sprite string   `json:"sprite"`
}

// PokemonParams filter and paginate Pokémon list queries.
type PokemonParams struct {
	ListParams

	// Type filters by Pokémon type (e.g. "electric").
	Type string

	// Search filters by name substring.
	Search string
}

// ListPokemon returns a page of Pokémon. List composition shifts more
// often than reference data, so these entries carry the shorter
// Pokémon-list TTL. Pass a per-query context so a superseded query
// (e.g. a newer keystroke) can cancel this one.
func (a *API) ListPokemon(ctx context.Context, p PokemonParams) (*List[Pokemon], error) {
	query, params := listQuery(p.ListParams)
	if p.Type != "" {
		query.Set("type", p.Type)
		params["type"] = p.Type
	}
	if p.Search != "" {
		query.Set("search", p.Search)
		params["search"] = p.Search
	}

	var out List[Pokemon]
	key := cache.Key{Resource: "pokemon", Params: params}
	if err := a.fetch(ctx, key, "/pokemon", query, cache.TTLPokemonList, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPokemon returns a single Pokémon by ID.
func (a *API) GetPokemon(ctx context.Context, id int) (*Pokemon, error) {
	var out Pokemon
	key := cache.Key{Resource: "pokemon", Params: map[string]string{"id": strconv.Itoa(id)}}
	if err := a.fetch(ctx, key, fmt.Sprintf("/pokemon/%d", id), nil, cache.TTLPokemonList, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
