// Package candidate retrieves nearest-neighbour content for a query vector.
package candidate

import (
	"context"
	"sort"
)

// Hit is one candidate returned by an index, with the raw similarity it reported.
type Hit struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
}

// Filter lists content and authors the index should leave out. It is a
// push-down optimization only; visibility is still enforced downstream.
type Filter struct {
	ExcludeIDs     []string
	ExcludeAuthors []string
}

// Source is the contract of an approximate nearest neighbour index.
// Results are ordered by descending score and hold at most limit hits.
type Source interface {
	Search(ctx context.Context, query []float32, limit int, filter Filter) ([]Hit, error)
}

func sortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
}

// Truncate enforces the Source contract on hits coming from a foreign index.
func Truncate(hits []Hit, limit int) []Hit {
	sortHits(hits)
	if limit >= 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
