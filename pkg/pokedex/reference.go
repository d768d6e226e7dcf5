package pokedex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/pokedexlabs/pokedex-client/pkg/cache"
)

// Item is a usable or holdable item.
type Item struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Effect   string `json:"effect"`
	Sprite   string `json:"sprite"`
}

// Move is a battle move.
type Move struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Power    int    `json:"power"`
	Accuracy int    `json:"accuracy"`
	PP       int    `json:"pp"`
}

// Berry is a growable berry.
type Berry struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Firmness string `json:"firmness"`
	Flavor   string `json:"flavor"`
}

// Game is a main-series game release.
type Game struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Generation int    `json:"generation"`
}

// Generation is a game generation with its region.
type Generation struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Region string `json:"region"`
}

// Reference data barely changes between releases, so all of these
// endpoints share the long reference TTL.

// ListItems returns a page of items.
func (a *API) ListItems(ctx context.Context, p ListParams) (*List[Item], error) {
	return listResource[Item](a, ctx, "items", p)
}

// GetItem returns a single item by ID.
func (a *API) GetItem(ctx context.Context, id int) (*Item, error) {
	return getResource[Item](a, ctx, "items", id)
}

// ListMoves returns a page of moves.
func (a *API) ListMoves(ctx context.Context, p ListParams) (*List[Move], error) {
	return listResource[Move](a, ctx, "moves", p)
}

// GetMove returns a single move by ID.
func (a *API) GetMove(ctx context.Context, id int) (*Move, error) {
	return getResource[Move](a, ctx, "moves", id)
}

// ListBerries returns a page of berries.
func (a *API) ListBerries(ctx context.Context, p ListParams) (*List[Berry], error) {
	return listResource[Berry](a, ctx, "berries", p)
}

// GetBerry returns a single berry by ID.
func (a *API) GetBerry(ctx context.Context, id int) (*Berry, error) {
	return getResource[Berry](a, ctx, "berries", id)
}

// ListGames returns a page of games.
func (a *API) ListGames(ctx context.Context, p ListParams) (*List[Game], error) {
	return listResource[Game](a, ctx, "games", p)
}

// ListGenerations returns a page of generations.
func (a *API) ListGenerations(ctx context.Context, p ListParams) (*List[Generation], error) {
	return listResource[Generation](a, ctx, "generations", p)
}

func listResource[T any](a *API, ctx context.Context, resource string, p ListParams) (*List[T], error) {
	query, params := listQuery(p)

	var out List[T]
	key := cache.Key{Resource: resource, Params: params}
	if err := a.fetch(ctx, key, "/"+resource, query, cache.TTLReference, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func getResource[T any](a *API, ctx context.Context, resource string, id int) (*T, error) {
	var out T
	key := cache.Key{Resource: resource, Params: map[string]string{"id": strconv.Itoa(id)}}
	path := fmt.Sprintf("/%s/%d", resource, id)
	if err := a.fetch(ctx, key, path, url.Values(nil), cache.TTLReference, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
