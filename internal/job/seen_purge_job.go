package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type seenPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type SeenPurgeJob struct {
	seen seenPurger
}

func NewSeenPurgeJob(seen seenPurger) *SeenPurgeJob {
	return &SeenPurgeJob{seen: seen}
}

func (j *SeenPurgeJob) Name() string {
	return "seen_purge"
}

func (j *SeenPurgeJob) Run(ctx context.Context) error {
	if j.seen == nil {
		return nil
	}
	n, err := j.seen.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("seen records purged", zap.Int64("removed", n))
	return nil
}
