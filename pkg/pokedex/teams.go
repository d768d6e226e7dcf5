package pokedex

import (
	"context"
	"fmt"
	"time"

	"github.com/pokedexlabs/pokedex-client/pkg/cache"
)

// Team is a user-built team of up to six Pokémon.
type Team struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	PokemonIDs []int     `json:"pokemonIds"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TeamInput is the payload for creating or updating a team.
type TeamInput struct {
	Name       string `json:"name"`
	PokemonIDs []int  `json:"pokemonIds"`
}

// ListTeams returns the authenticated user's teams. Team data changes
// whenever the user edits a team, so reads use a short TTL and every
// mutation invalidates the affected keys.
func (a *API) ListTeams(ctx context.Context) ([]Team, error) {
	var out []Team
	key := cache.Key{Resource: "teams"}
	if err := a.fetch(ctx, key, "/teams", nil, cache.TTLTeams, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTeam returns a single team by ID.
func (a *API) GetTeam(ctx context.Context, id string) (*Team, error) {
	var out Team
	key := cache.Key{Resource: "teams", Params: map[string]string{"id": id}}
	if err := a.fetch(ctx, key, "/teams/"+id, nil, cache.TTLTeams, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTeam creates a team and invalidates the team list.
func (a *API) CreateTeam(ctx context.Context, input TeamInput) (*Team, error) {
	if err := validateTeam(input); err != nil {
		return nil, err
	}

	var out Team
	if err := a.client.PostJSON(ctx, "/teams", input, &out); err != nil {
		return nil, err
	}

	a.invalidateTeam(ctx, out.ID)
	return &out, nil
}

// UpdateTeam replaces a team's name and members.
func (a *API) UpdateTeam(ctx context.Context, id string, input TeamInput) (*Team, error) {
	if err := validateTeam(input); err != nil {
		return nil, err
	}

	var out Team
	if err := a.client.PutJSON(ctx, "/teams/"+id, input, &out); err != nil {
		return nil, err
	}

	a.invalidateTeam(ctx, id)
	return &out, nil
}

// DeleteTeam removes a team.
func (a *API) DeleteTeam(ctx context.Context, id string) error {
	if err := a.client.Delete(ctx, "/teams/"+id); err != nil {
		return err
	}

	a.invalidateTeam(ctx, id)
	return nil
}

// invalidateTeam drops the cached list and the team's own entry so the
// next read observes the mutation immediately instead of waiting out
// the TTL.
func (a *API) invalidateTeam(ctx context.Context, id string) {
	a.cache.Remove(ctx, cache.Key{Resource: "teams"}.String())
	if id != "" {
		a.cache.Remove(ctx, cache.Key{Resource: "teams", Params: map[string]string{"id": id}}.String())
	}
}

func validateTeam(input TeamInput) error {
	if input.Name == "" {
		return fmt.Errorf("team name is required")
	}
	if len(input.PokemonIDs) > 6 {
		return fmt.Errorf("a team holds at most 6 pokemon, got %d", len(input.PokemonIDs))
	}
	return nil
}
