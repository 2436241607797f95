package wikidata

import (
	"sort"
	"strings"

	"github.com/dh-lab/wikimatch/internal/record"
)

// cacheKey normalizes a query plus its type filter into a lookup key.
// Lookup is case- and whitespace-insensitive on the query string.
func cacheKey(query string, opts QueryOptions) string {
	types := append([]string(nil), opts.Types...)
	sort.Strings(types)
	return strings.ToLower(strings.TrimSpace(query)) + "|" + strings.Join(types, ",")
}

// queryCache memoizes candidate lists per normalized query for one run.
// Access is strictly sequential (the runner never issues parallel requests),
// so no locking is needed; a concurrent runner would have to add it.
type queryCache struct {
	entries map[string][]record.Candidate
}

func newQueryCache() *queryCache {
	return &queryCache{entries: make(map[string][]record.Candidate)}
}

func (c *queryCache) get(key string) ([]record.Candidate, bool) {
	candidates, ok := c.entries[key]
	return candidates, ok
}

func (c *queryCache) put(key string, candidates []record.Candidate) {
	c.entries[key] = candidates
}
