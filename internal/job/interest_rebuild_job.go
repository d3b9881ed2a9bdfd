package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const defaultRebuildLimit = 1000

type interestRebuilder interface {
	RebuildActive(ctx context.Context, window time.Duration, limit int) (int, error)
}

// InterestRebuildJob refreshes the interest vectors of identities that saved
// or posted since the previous window.
type InterestRebuildJob struct {
	interest interestRebuilder
	window   time.Duration
	limit    int
}

func NewInterestRebuildJob(interest interestRebuilder, window time.Duration, limit int) *InterestRebuildJob {
	if window <= 0 {
		window = 24 * time.Hour
	}
	if limit <= 0 {
		limit = defaultRebuildLimit
	}
	return &InterestRebuildJob{interest: interest, window: window, limit: limit}
}

func (j *InterestRebuildJob) Name() string {
	return "interest_rebuild"
}

func (j *InterestRebuildJob) Run(ctx context.Context) error {
	if j.interest == nil {
		return nil
	}
	n, err := j.interest.RebuildActive(ctx, j.window, j.limit)
	logutil.GetLogger(ctx).Info("interest vectors rebuilt", zap.Int("count", n))
	return err
}
