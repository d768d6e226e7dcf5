package cache

import (
	"fmt"
	"sort"
	"strings"
)

// Prefix namespaces every cache key so unrelated data sharing the same
// physical store is never touched by ClearExpired or ClearAll.
const Prefix = "pokedex:"

// Key identifies a cached API response.
type Key struct {
	// Resource is the entity name (e.g. "pokemon", "items", "teams").
	Resource string

	// Params are the query parameters of the request (filters, pagination).
	Params map[string]string
}

// String generates a deterministic key string. Params are sorted so that
// identical queries always produce the same key and distinct query
// shapes never collide.
//
// Example:
//
//	pokemon:limit=20:offset=40:type=electric
func (k Key) String() string {
	parts := []string{k.Resource}

	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name := range k.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, k.Params[name]))
		}
	}

	return strings.Join(parts, ":")
}
