package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mfeed/internal/cache"
	"github.com/xxxsen/mfeed/internal/model"
	appErr "github.com/xxxsen/mfeed/internal/pkg/errors"
)

type nopInvalidator struct{}

func (nopInvalidator) Invalidated(string, int) {}

// EventService turns mutation events into cache invalidations. Post events
// that name the new post also embed it right away.
type EventService struct {
	cache     *cache.Artifacts
	monitor   Invalidator
	content   ContentReader
	embedding *EmbeddingService
}

func NewEventService(artifacts *cache.Artifacts, monitor Invalidator, content ContentReader, embedding *EmbeddingService) *EventService {
	if monitor == nil {
		monitor = nopInvalidator{}
	}
	return &EventService{cache: artifacts, monitor: monitor, content: content, embedding: embedding}
}

func (s *EventService) Handle(ctx context.Context, ev model.MutationEvent) error {
	actor := strings.TrimSpace(ev.ActorID)
	target := strings.TrimSpace(ev.TargetID)
	if actor == "" {
		return fmt.Errorf("actor id is required: %w", appErr.ErrInvalid)
	}
	var (
		removed int
		err     error
	)
	switch ev.Kind {
	case model.EventFollow:
		if target == "" {
			return fmt.Errorf("follow event needs a target: %w", appErr.ErrInvalid)
		}
		removed, err = s.cache.OnFollowChanged(ctx, actor, target)
	case model.EventBlock:
		if target == "" {
			return fmt.Errorf("block event needs a target: %w", appErr.ErrInvalid)
		}
		removed, err = s.cache.OnBlockChanged(ctx, actor, target)
	case model.EventPost:
		s.embedPost(ctx, actor, target)
		removed, err = s.cache.OnNewPost(ctx, actor)
	case model.EventPrivacy:
		removed, err = s.cache.OnPrivacyChanged(ctx, actor)
	default:
		return fmt.Errorf("unknown event kind %q: %w", ev.Kind, appErr.ErrInvalid)
	}
	s.monitor.Invalidated(string(ev.Kind), removed)
	if err != nil {
		return fmt.Errorf("invalidate %s: %w", ev.Kind, err)
	}
	logutil.GetLogger(ctx).Debug("cache invalidated",
		zap.String("event", string(ev.Kind)), zap.String("actor_id", actor), zap.Int("removed", removed))
	return nil
}

// embedPost is best effort; the backfill job picks up whatever fails here.
func (s *EventService) embedPost(ctx context.Context, authorID, postID string) {
	if postID == "" || s.embedding == nil || s.content == nil {
		return
	}
	logger := logutil.GetLogger(ctx).With(zap.String("post_id", postID))
	items, err := s.content.ListByIDs(ctx, []string{postID})
	if err != nil {
		logger.Warn("load new post failed", zap.Error(err))
		return
	}
	for _, item := range items {
		if item.AuthorID != authorID {
			logger.Warn("post author mismatch, skip embedding", zap.String("author_id", item.AuthorID))
			continue
		}
		if len(item.Embedding) > 0 {
			continue
		}
		if err := s.embedding.EmbedItem(ctx, item); err != nil {
			logger.Warn("embed new post failed", zap.Error(err))
		}
	}
}
