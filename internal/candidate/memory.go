package candidate

import (
	"context"
	"sync"

	"github.com/xxxsen/mfeed/internal/vecmath"
)

type memoryEntry struct {
	id       string
	authorID string
	vector   []float32
}

// MemoryIndex is an exact, brute-force index. It backs tests and the
// "memory" index type for local development.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]memoryEntry)}
}

func (m *MemoryIndex) Upsert(id, authorID string, vector []float32) error {
	if err := vecmath.CheckDim(vector); err != nil {
		return err
	}
	clone := make([]float32, len(vector))
	copy(clone, vector)
	m.mu.Lock()
	m.entries[id] = memoryEntry{id: id, authorID: authorID, vector: clone}
	m.mu.Unlock()
	return nil
}

func (m *MemoryIndex) Delete(id string) {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
}

func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryIndex) Search(ctx context.Context, query []float32, limit int, filter Filter) ([]Hit, error) {
	if err := vecmath.CheckDim(query); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []Hit{}, nil
	}
	excludeIDs := toSet(filter.ExcludeIDs)
	excludeAuthors := toSet(filter.ExcludeAuthors)

	m.mu.RLock()
	ids := make([]string, 0, len(m.entries))
	matrix := make([][]float32, 0, len(m.entries))
	for _, e := range m.entries {
		if _, ok := excludeIDs[e.id]; ok {
			continue
		}
		if _, ok := excludeAuthors[e.authorID]; ok {
			continue
		}
		ids = append(ids, e.id)
		matrix = append(matrix, e.vector)
	}
	m.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scores, err := vecmath.BatchSimilarity(query, matrix)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, len(ids))
	for i, id := range ids {
		hits[i] = Hit{ID: id, Score: scores[i]}
	}
	return Truncate(hits, limit), nil
}
