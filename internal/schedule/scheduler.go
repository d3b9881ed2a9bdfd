package schedule

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// RunObserver is told about every finished job run, see metrics.Monitor.
type RunObserver interface {
	JobRun(job string, err error)
}

type Scheduler interface {
	AddJob(job Job, spec string) error
	Start(ctx context.Context)
	Stop()
}

type CronScheduler struct {
	cron     *cron.Cron
	entries  map[string]cron.EntryID
	observer RunObserver
	ctx      context.Context
}

func NewCronScheduler(observer RunObserver) *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &CronScheduler{
		cron:     cron.New(cron.WithParser(parser)),
		entries:  make(map[string]cron.EntryID),
		observer: observer,
	}
}

// AddJob schedules job on spec. An empty spec leaves the job disabled.
func (c *CronScheduler) AddJob(job Job, spec string) error {
	name := job.Name()
	logger := logutil.GetLogger(context.Background()).With(zap.String("job", name), zap.String("spec", spec))
	if spec == "" {
		logger.Info("job disabled")
		return nil
	}
	if _, ok := c.entries[name]; ok {
		return fmt.Errorf("job %s already scheduled", name)
	}
	entryID, err := c.cron.AddFunc(spec, c.wrap(job, spec))
	if err != nil {
		logger.Error("schedule job failed", zap.Error(err))
		return fmt.Errorf("schedule job %s: %w", name, err)
	}
	c.entries[name] = entryID
	logger.Info("job scheduled")
	return nil
}

func (c *CronScheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.ctx = ctx
	c.cron.Start()
}

func (c *CronScheduler) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

// RunNow runs job once in the calling goroutine, through the same logging
// and observer path as a scheduled run. Used by the one-shot commands.
func RunNow(ctx context.Context, job Job, observer RunObserver) error {
	return run(ctx, job, "manual", observer)
}

func run(ctx context.Context, job Job, spec string, observer RunObserver) error {
	logger := logutil.GetLogger(ctx).With(
		zap.String("job", job.Name()),
		zap.String("spec", spec),
	)
	start := time.Now()
	logger.Info("job started")
	err := job.Run(ctx)
	elapsed := time.Since(start)
	if observer != nil {
		observer.JobRun(job.Name(), err)
	}
	if err != nil {
		logger.Error("job finished", zap.Error(err), zap.Duration("duration", elapsed))
		return err
	}
	logger.Info("job finished", zap.Duration("duration", elapsed))
	return nil
}

func (c *CronScheduler) wrap(job Job, spec string) func() {
	var running atomic.Bool
	return func() {
		if !running.CompareAndSwap(false, true) {
			logutil.GetLogger(context.Background()).With(
				zap.String("job", job.Name()),
				zap.String("spec", spec),
			).Info("job skipped: still running")
			return
		}
		defer running.Store(false)

		ctx := c.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		_ = run(ctx, job, spec, c.observer)
	}
}
