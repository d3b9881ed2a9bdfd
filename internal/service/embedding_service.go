package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mfeed/internal/ai"
	"github.com/xxxsen/mfeed/internal/model"
	"github.com/xxxsen/mfeed/internal/vecmath"
)

const loadPageSize = 500

type EmbeddingService struct {
	content  EmbeddingWriter
	embedder ai.IEmbedder
	index    IndexWriter
	taskType string
	now      func() time.Time
}

// NewEmbeddingService embeds posts through embedder. index may be nil when
// candidates come straight from postgres.
func NewEmbeddingService(content EmbeddingWriter, embedder ai.IEmbedder, index IndexWriter, taskType string) *EmbeddingService {
	if taskType == "" {
		taskType = "RETRIEVAL_DOCUMENT"
	}
	return &EmbeddingService{content: content, embedder: embedder, index: index, taskType: taskType, now: time.Now}
}

func embedText(item model.ContentItem) string {
	text := strings.TrimSpace(item.Body)
	if len(item.Tags) > 0 {
		text += "\n" + strings.Join(item.Tags, " ")
	}
	return text
}

// EmbedItem embeds one post and stores the normalized vector.
func (s *EmbeddingService) EmbedItem(ctx context.Context, item model.ContentItem) error {
	if s.embedder == nil {
		return nil
	}
	text := embedText(item)
	if text == "" {
		return nil
	}
	emb, err := s.embedder.Embed(ctx, text, s.taskType)
	if err != nil {
		return fmt.Errorf("embed post %s: %w", item.ID, err)
	}
	emb, err = vecmath.Normalize(emb)
	if err != nil {
		return fmt.Errorf("embed post %s: %w", item.ID, err)
	}
	if err := s.content.SaveEmbedding(ctx, item.ID, emb, s.now().Unix()); err != nil {
		return fmt.Errorf("save embedding of %s: %w", item.ID, err)
	}
	if s.index != nil {
		if err := s.index.Upsert(item.ID, item.AuthorID, emb); err != nil {
			return fmt.Errorf("index post %s: %w", item.ID, err)
		}
	}
	return nil
}

// Backfill embeds up to batch posts that have no embedding yet.
func (s *EmbeddingService) Backfill(ctx context.Context, batch int) (int, error) {
	if s.embedder == nil {
		return 0, nil
	}
	if batch <= 0 {
		batch = 50
	}
	items, err := s.content.ListMissingEmbeddings(ctx, uint(batch))
	if err != nil {
		return 0, fmt.Errorf("list missing embeddings: %w", err)
	}
	logger := logutil.GetLogger(ctx)
	done := 0
	var firstErr error
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if err := s.EmbedItem(ctx, item); err != nil {
			logger.Error("failed to embed post", zap.String("post_id", item.ID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		done++
	}
	if done > 0 {
		logger.Info("embeddings backfilled", zap.Int("count", done), zap.Int("pending", len(items)-done))
	}
	return done, firstErr
}

// LoadIndex copies every stored embedding into index.
func LoadIndex(ctx context.Context, content EmbeddingWriter, index IndexWriter) (int, error) {
	after := ""
	total := 0
	for {
		items, err := content.ListEmbedded(ctx, after, loadPageSize)
		if err != nil {
			return total, fmt.Errorf("list embedded posts: %w", err)
		}
		for _, item := range items {
			if err := index.Upsert(item.ID, item.AuthorID, item.Embedding); err != nil {
				logutil.GetLogger(ctx).Warn("skip post with bad embedding", zap.String("post_id", item.ID), zap.Error(err))
				continue
			}
			total++
		}
		if len(items) < loadPageSize {
			return total, nil
		}
		after = items[len(items)-1].ID
	}
}
