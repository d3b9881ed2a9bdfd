package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mfeed/internal/cache"
	"github.com/xxxsen/mfeed/internal/model"
	"github.com/xxxsen/mfeed/internal/vecmath"
)

const (
	savedWeight    = 1.0
	authoredWeight = 0.5
)

type InterestService struct {
	interest  InterestRepo
	content   AuthoredReader
	activity  ActivityReader
	cache     *cache.Artifacts
	saveLimit uint
	now       func() time.Time
}

func NewInterestService(interest InterestRepo, content AuthoredReader, activity ActivityReader, artifacts *cache.Artifacts, saveLimit int) *InterestService {
	if saveLimit <= 0 {
		saveLimit = 50
	}
	return &InterestService{
		interest:  interest,
		content:   content,
		activity:  activity,
		cache:     artifacts,
		saveLimit: uint(saveLimit),
		now:       time.Now,
	}
}

// Rebuild recomputes the interest vector of identityID from the embeddings of
// its recent saves and its own posts. With no embedded source the stored
// vector is removed and the identity goes back to cold start.
func (s *InterestService) Rebuild(ctx context.Context, identityID string) error {
	logger := logutil.GetLogger(ctx).With(zap.String("identity_id", identityID))
	saves, err := s.activity.ListRecent(ctx, identityID, s.saveLimit)
	if err != nil {
		return fmt.Errorf("list saves: %w", err)
	}
	ids := make([]string, 0, len(saves))
	for _, item := range saves {
		ids = append(ids, item.ContentID)
	}
	saved, err := s.content.ListByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("list saved content: %w", err)
	}
	authored, err := s.content.ListRecentByAuthor(ctx, identityID, s.saveLimit)
	if err != nil {
		return fmt.Errorf("list authored content: %w", err)
	}

	vectors := make([][]float32, 0, len(saved)+len(authored))
	weights := make([]float64, 0, len(saved)+len(authored))
	collect := func(items []model.ContentItem, w float64) {
		for _, item := range items {
			if vecmath.CheckDim(item.Embedding) != nil || vecmath.IsZero(item.Embedding) {
				continue
			}
			vectors = append(vectors, item.Embedding)
			weights = append(weights, w)
		}
	}
	collect(saved, savedWeight)
	collect(authored, authoredWeight)

	if len(vectors) == 0 {
		if err := s.interest.Delete(ctx, identityID); err != nil {
			return fmt.Errorf("delete interest vector: %w", err)
		}
		logger.Debug("no embedded sources, interest vector cleared")
	} else {
		mean, err := vecmath.Mean(vectors, weights)
		if err != nil {
			return fmt.Errorf("mean interest vector: %w", err)
		}
		if err := s.interest.Save(ctx, &model.InterestVector{
			IdentityID: identityID,
			Embedding:  mean,
			Sources:    len(vectors),
			Mtime:      s.now().Unix(),
		}); err != nil {
			return fmt.Errorf("save interest vector: %w", err)
		}
		logger.Debug("interest vector rebuilt", zap.Int("sources", len(vectors)))
	}
	if _, err := s.cache.OnInterestRebuilt(ctx, identityID); err != nil {
		logger.Warn("invalidate after interest rebuild failed", zap.Error(err))
	}
	return nil
}

// RebuildActive rebuilds every identity active within window. Individual
// failures are logged and counted; the first one is returned at the end.
func (s *InterestService) RebuildActive(ctx context.Context, window time.Duration, limit int) (int, error) {
	since := s.now().Add(-window).Unix()
	ids, err := s.activity.ListActiveIdentities(ctx, since, limit)
	if err != nil {
		return 0, fmt.Errorf("list active identities: %w", err)
	}
	var firstErr error
	done := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if err := s.Rebuild(ctx, id); err != nil {
			logutil.GetLogger(ctx).Error("rebuild interest failed", zap.String("identity_id", id), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		done++
	}
	return done, firstErr
}
