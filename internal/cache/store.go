// Package cache holds the shared cross-request cache of ranking artifacts.
package cache

import (
	"context"
	"strings"
	"time"
)

// Store is a keyed blob store with per-entry TTL. Invalidate accepts a glob
// pattern where '*' matches any run of characters.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, blob []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) (int, error)
}

const globMeta = `*?[]\`

func isPattern(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// EscapeGlob quotes glob metacharacters so that an identity id can be
// embedded into an invalidation pattern.
func EscapeGlob(s string) string {
	if !strings.ContainsAny(s, globMeta) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(globMeta, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func unescapeGlob(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}
