package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type cacheCleaner interface {
	DeleteBefore(ctx context.Context, cutoff int64) (int64, error)
}

// EmbeddingCacheCleanupJob drops persisted embeddings nobody asked for in
// maxAgeDays.
type EmbeddingCacheCleanupJob struct {
	repo       cacheCleaner
	maxAgeDays int
}

func NewEmbeddingCacheCleanupJob(repo cacheCleaner, maxAgeDays int) *EmbeddingCacheCleanupJob {
	return &EmbeddingCacheCleanupJob{repo: repo, maxAgeDays: maxAgeDays}
}

func (j *EmbeddingCacheCleanupJob) Name() string {
	return "embedding_cache_cleanup"
}

func (j *EmbeddingCacheCleanupJob) Run(ctx context.Context) error {
	if j.repo == nil {
		return nil
	}
	maxAgeDays := j.maxAgeDays
	if maxAgeDays <= 0 {
		maxAgeDays = 30
	}
	cutoff := time.Now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour).Unix()
	n, err := j.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Debug("embedding cache cleaned", zap.Int64("removed", n))
	return nil
}
