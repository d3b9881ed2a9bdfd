package job

import (
	"context"
)

type embeddingBackfiller interface {
	Backfill(ctx context.Context, batch int) (int, error)
}

type ContentEmbeddingJob struct {
	embedding embeddingBackfiller
	batch     int
}

func NewContentEmbeddingJob(embedding embeddingBackfiller, batch int) *ContentEmbeddingJob {
	return &ContentEmbeddingJob{embedding: embedding, batch: batch}
}

func (j *ContentEmbeddingJob) Name() string {
	return "content_embedding"
}

func (j *ContentEmbeddingJob) Run(ctx context.Context) error {
	if j.embedding == nil {
		return nil
	}
	_, err := j.embedding.Backfill(ctx, j.batch)
	return err
}
