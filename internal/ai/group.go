package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mfeed/internal/vecmath"
)

type EmbedderEntry struct {
	Name     string
	Embedder IEmbedder
}

type groupEmbedder struct {
	items []EmbedderEntry
}

// NewGroupEmbedder tries each entry in order until one succeeds.
func NewGroupEmbedder(items []EmbedderEntry) IEmbedder {
	if len(items) == 0 {
		return nil
	}
	return &groupEmbedder{items: items}
}

func (g *groupEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	var lastErr error
	for i, item := range g.items {
		if item.Embedder == nil {
			continue
		}
		res, err := item.Embedder.Embed(ctx, text, taskType)
		if err == nil {
			return res, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("embedder failed", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
	}
	if lastErr == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	return nil, lastErr
}

func (g *groupEmbedder) ModelName() string {
	names := make([]string, 0, len(g.items))
	for _, item := range g.items {
		if item.Name == "" {
			continue
		}
		names = append(names, item.Name)
	}
	return strings.Join(names, "|")
}

type dimEmbedder struct {
	next IEmbedder
}

// WithDimensionCheck rejects embeddings that do not match the index dimension.
func WithDimensionCheck(e IEmbedder) IEmbedder {
	if e == nil {
		return nil
	}
	return &dimEmbedder{next: e}
}

func (d *dimEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	res, err := d.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	if err := vecmath.CheckDim(res); err != nil {
		return nil, fmt.Errorf("model %s: %w", d.next.ModelName(), err)
	}
	return res, nil
}

func (d *dimEmbedder) ModelName() string {
	return d.next.ModelName()
}
