package cache

import (
	"context"
	"path"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type lruEntry struct {
	blob      []byte
	expiresAt time.Time
}

// LRUStore is a process local Store. Entries expire lazily on read.
type LRUStore struct {
	cache *lru.Cache[string, lruEntry]
	now   func() time.Time
}

func NewLRUStore(size int) (*LRUStore, error) {
	c, err := lru.New[string, lruEntry](size)
	if err != nil {
		return nil, err
	}
	return &LRUStore{cache: c, now: time.Now}, nil
}

func (s *LRUStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	entry, ok := s.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		s.cache.Remove(key)
		return nil, false, nil
	}
	return entry.blob, true, nil
}

func (s *LRUStore) Set(_ context.Context, key string, blob []byte, ttl time.Duration) error {
	entry := lruEntry{blob: blob}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.cache.Add(key, entry)
	return nil
}

func (s *LRUStore) Invalidate(_ context.Context, pattern string) (int, error) {
	if !isPattern(pattern) {
		if s.cache.Remove(unescapeGlob(pattern)) {
			return 1, nil
		}
		return 0, nil
	}
	removed := 0
	for _, key := range s.cache.Keys() {
		ok, err := path.Match(pattern, key)
		if err != nil {
			return removed, err
		}
		if ok && s.cache.Remove(key) {
			removed++
		}
	}
	return removed, nil
}

func (s *LRUStore) Len() int {
	return s.cache.Len()
}
