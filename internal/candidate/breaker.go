package candidate

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/mfeed/internal/pkg/errors"
)

type BreakerConfig struct {
	MaxRequests     uint32  `json:"max_requests"`
	IntervalSeconds int     `json:"interval_seconds"`
	TimeoutSeconds  int     `json:"timeout_seconds"`
	MinRequests     uint32  `json:"min_requests"`
	FailureRatio    float64 `json:"failure_ratio"`
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:     3,
		IntervalSeconds: 60,
		TimeoutSeconds:  30,
		MinRequests:     10,
		FailureRatio:    0.6,
	}
}

// StateObserver receives breaker transitions, typically a metrics.Monitor.
type StateObserver interface {
	BreakerStateChanged(name string, from, to string)
}

type BreakerSource struct {
	next Source
	cb   *gobreaker.CircuitBreaker[[]Hit]
}

// NewBreakerSource trips after cfg.FailureRatio failures over at least
// cfg.MinRequests calls and rejects searches until cfg.TimeoutSeconds pass.
func NewBreakerSource(name string, next Source, cfg BreakerConfig, observer StateObserver) *BreakerSource {
	if cfg.MinRequests == 0 {
		cfg.MinRequests = DefaultBreakerConfig().MinRequests
	}
	if cfg.FailureRatio <= 0 {
		cfg.FailureRatio = DefaultBreakerConfig().FailureRatio
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.IntervalSeconds) * time.Second,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || appErr.IsInvalidInput(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logutil.GetLogger(context.Background()).Warn("candidate source breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if observer != nil {
				observer.BreakerStateChanged(name, from.String(), to.String())
			}
		},
	}
	return &BreakerSource{next: next, cb: gobreaker.NewCircuitBreaker[[]Hit](settings)}
}

func (b *BreakerSource) Search(ctx context.Context, query []float32, limit int, filter Filter) ([]Hit, error) {
	hits, err := b.cb.Execute(func() ([]Hit, error) {
		return b.next.Search(ctx, query, limit, filter)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("candidate source %s: %v: %w", b.cb.Name(), err, appErr.ErrUpstreamUnavailable)
		}
		return nil, err
	}
	return hits, nil
}

func (b *BreakerSource) State() string {
	return b.cb.State().String()
}
