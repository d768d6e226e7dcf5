package cache

import "time"

// TTL policy by data class. The cache itself does not enforce these;
// callers pick the TTL that matches their data's volatility.
const (
	// TTLReference covers largely-static reference data: items, moves,
	// berries, games, generations.
	TTLReference = 24 * time.Hour

	// TTLPokemonList covers paginated/filterable Pokémon queries, whose
	// composition shifts more often than pure reference data.
	TTLPokemonList = 1 * time.Hour

	// TTLTeams covers user-owned team data, which changes whenever the
	// user edits a team.
	TTLTeams = 5 * time.Minute
)
