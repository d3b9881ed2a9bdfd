// Package embedcache layers LRU and database caches in front of an embedder
// so that unchanged post bodies are never sent to the model twice.
package embedcache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Key derives the cache identity of a text for a model and task type.
func Key(modelName, taskType, text string) (cacheKey, contentHash, model string) {
	model = strings.TrimSpace(modelName)
	if model == "" {
		model = "unknown"
	}
	hash := sha256.Sum256([]byte(text))
	contentHash = hex.EncodeToString(hash[:])
	return "embed:" + model + ":" + taskType + ":" + contentHash, contentHash, model
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
