package embedcache

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mfeed/internal/ai"
	"github.com/xxxsen/mfeed/internal/model"
)

// Store is the persistent side of the cache, see repo.EmbeddingCacheRepo.
type Store interface {
	Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error)
	Save(ctx context.Context, item *model.EmbeddingCache) error
}

func WrapDB(e ai.IEmbedder, store Store) ai.IEmbedder {
	if e == nil || store == nil {
		return e
	}
	return &dbEmbedder{next: e, store: store, now: time.Now}
}

type dbEmbedder struct {
	next  ai.IEmbedder
	store Store
	now   func() time.Time
}

func (d *dbEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	_, contentHash, modelName := Key(d.next.ModelName(), taskType, text)
	values, ok, err := d.store.Get(ctx, modelName, taskType, contentHash)
	if err != nil {
		logutil.GetLogger(ctx).Warn("embedding cache read failed", zap.Error(err))
	} else if ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit (db)", zap.String("task_type", taskType))
		return values, nil
	}
	res, err := d.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	if err := d.store.Save(ctx, &model.EmbeddingCache{
		ModelName:   modelName,
		TaskType:    taskType,
		ContentHash: contentHash,
		Embedding:   res,
		Ctime:       d.now().Unix(),
	}); err != nil {
		logutil.GetLogger(ctx).Warn("failed to cache embedding", zap.Error(err))
	}
	return res, nil
}

func (d *dbEmbedder) ModelName() string {
	return d.next.ModelName()
}
