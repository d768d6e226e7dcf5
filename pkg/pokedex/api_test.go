package pokedex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokedexlabs/pokedex-client/internal/testutil"
	"github.com/pokedexlabs/pokedex-client/pkg/cache"
	"github.com/pokedexlabs/pokedex-client/pkg/client"
	"github.com/pokedexlabs/pokedex-client/pkg/session"
)

func newTestAPI(t *testing.T, mock *testutil.MockAPI) *API {
	t.Helper()

	c, err := client.New(client.Config{
		BaseURL:    mock.URL(),
		Tokens:     session.New(),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	})
	require.NoError(t, err)

	return New(c, cache.NewManager(cache.NewMemoryStore(0)))
}

func TestListPokemon_CachesResponse(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/pokemon", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"count": 1, "results": [{"id": 25, "name": "pikachu", "types": ["electric"]}]}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	})

	api := newTestAPI(t, mock)
	ctx := context.Background()

	first, err := api.ListPokemon(ctx, PokemonParams{ListParams: ListParams{Limit: 20}})
	require.NoError(t, err)
	require.Len(t, first.Results, 1)
	assert.Equal(t, "pikachu", first.Results[0].Name)
	assert.Equal(t, 1, mock.GetRequestCount())

	// Identical query is served from cache, no second network call.
	second, err := api.ListPokemon(ctx, PokemonParams{ListParams: ListParams{Limit: 20}})
	require.NoError(t, err)
	assert.Equal(t, first.Results, second.Results)
	assert.Equal(t, 1, mock.GetRequestCount())

	// A different query shape misses and fetches.
	_, err = api.ListPokemon(ctx, PokemonParams{ListParams: ListParams{Limit: 20, Offset: 20}})
	require.NoError(t, err)
	assert.Equal(t, 2, mock.GetRequestCount())
}

func TestGetPokemon(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/pokemon/25", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"id": 25, "name": "pikachu", "types": ["electric"], "height": 4, "weight": 60}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	})

	api := newTestAPI(t, mock)

	p, err := api.GetPokemon(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, "pikachu", p.Name)
	assert.Equal(t, []string{"electric"}, p.Types)
}

func TestListItems_UsesReferenceCache(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/items", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"count": 1, "results": [{"id": 1, "name": "potion", "category": "medicine"}]}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	})

	api := newTestAPI(t, mock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		items, err := api.ListItems(ctx, ListParams{})
		require.NoError(t, err)
		require.Len(t, items.Results, 1)
		assert.Equal(t, "potion", items.Results[0].Name)
	}
	assert.Equal(t, 1, mock.GetRequestCount(), "repeat reads must be cache hits")
}

func TestTeams_MutationInvalidatesCache(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	listCalls := 0
	mock.SetHandler("/teams", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			listCalls++
			fmt.Fprint(w, `[{"id": "t1", "name": "Kanto Starters", "pokemonIds": [1, 4, 7]}]`)
		case http.MethodPost:
			var input TeamInput
			json.NewDecoder(r.Body).Decode(&input)
			json.NewEncoder(w).Encode(Team{ID: "t2", Name: input.Name, PokemonIDs: input.PokemonIDs})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	api := newTestAPI(t, mock)
	ctx := context.Background()

	_, err := api.ListTeams(ctx)
	require.NoError(t, err)
	_, err = api.ListTeams(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, listCalls, "second list should be cached")

	created, err := api.CreateTeam(ctx, TeamInput{Name: "Rain Dance", PokemonIDs: []int{7}})
	require.NoError(t, err)
	assert.Equal(t, "t2", created.ID)

	_, err = api.ListTeams(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, listCalls, "mutation must invalidate the cached list")
}

func TestCreateTeam_Validation(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	api := newTestAPI(t, mock)
	ctx := context.Background()

	_, err := api.CreateTeam(ctx, TeamInput{})
	assert.Error(t, err, "empty name must be rejected")

	_, err = api.CreateTeam(ctx, TeamInput{Name: "too big", PokemonIDs: []int{1, 2, 3, 4, 5, 6, 7}})
	assert.Error(t, err, "more than six pokemon must be rejected")

	assert.Equal(t, 0, mock.GetRequestCount(), "invalid input never reaches the network")
}

func TestListPokemon_Cancellation(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/pokemon", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"count": 0, "results": []}`,
		Delay:      2 * time.Second,
	})

	api := newTestAPI(t, mock)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := api.ListPokemon(ctx, PokemonParams{Search: "pika"})
	assert.Error(t, err, "a superseded query's context must abort the fetch")
}

func TestAllPokemon_FetchesEveryPage(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	const total = 250
	mock.SetHandler("/pokemon", func(w http.ResponseWriter, r *http.Request) {
		limit, _ := parseIntParam(r, "limit")
		offset, _ := parseIntParam(r, "offset")

		end := offset + limit
		if end > total {
			end = total
		}

		results := make([]Pokemon, 0, end-offset)
		for i := offset; i < end; i++ {
			results = append(results, Pokemon{ID: i + 1, Name: fmt.Sprintf("pokemon-%d", i+1)})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"count": total, "results": results})
	})

	api := newTestAPI(t, mock)

	all, err := api.AllPokemon(context.Background())
	require.NoError(t, err)
	require.Len(t, all, total)
	assert.Equal(t, "pokemon-1", all[0].Name)
	assert.Equal(t, fmt.Sprintf("pokemon-%d", total), all[total-1].Name)
}

func parseIntParam(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	var n int
	_, err := fmt.Sscanf(v, "%d", &n)
	return n, err
}
