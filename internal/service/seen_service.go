package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mfeed/internal/cache"
	"github.com/xxxsen/mfeed/internal/feed"
	appErr "github.com/xxxsen/mfeed/internal/pkg/errors"
	"github.com/xxxsen/mfeed/internal/signal"
)

const maxSeenBatch = 200

type SeenService struct {
	seen          SeenStore
	cache         *cache.Artifacts
	retentionDays int
	now           func() time.Time
}

func NewSeenService(seen SeenStore, artifacts *cache.Artifacts, retentionDays int) *SeenService {
	if retentionDays <= 0 {
		retentionDays = signal.DefaultRetentionDays
	}
	return &SeenService{seen: seen, cache: artifacts, retentionDays: retentionDays, now: time.Now}
}

// MarkSeen records that identityID was shown contentIDs now.
func (s *SeenService) MarkSeen(ctx context.Context, identityID string, contentIDs []string) error {
	if strings.TrimSpace(identityID) == "" {
		return fmt.Errorf("identity id is required: %w", appErr.ErrInvalid)
	}
	if len(contentIDs) == 0 {
		return nil
	}
	if len(contentIDs) > maxSeenBatch {
		return fmt.Errorf("at most %d ids per call: %w", maxSeenBatch, appErr.ErrInvalid)
	}
	uniq := make([]string, 0, len(contentIDs))
	dup := make(map[string]struct{}, len(contentIDs))
	for _, id := range contentIDs {
		if id == "" || feed.ValidateCursor(id) != nil {
			return fmt.Errorf("invalid content id %q: %w", id, appErr.ErrInvalid)
		}
		if _, ok := dup[id]; ok {
			continue
		}
		dup[id] = struct{}{}
		uniq = append(uniq, id)
	}
	if err := s.seen.MarkSeen(ctx, identityID, uniq, s.now().Unix()); err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	if _, err := s.cache.OnSeen(ctx, identityID); err != nil {
		logutil.GetLogger(ctx).Warn("invalidate seen cache failed", zap.String("identity_id", identityID), zap.Error(err))
	}
	return nil
}

// PurgeExpired drops seen records older than the retention window; they no
// longer affect scoring.
func (s *SeenService) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-time.Duration(s.retentionDays) * 24 * time.Hour).Unix()
	n, err := s.seen.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge seen records: %w", err)
	}
	return n, nil
}
