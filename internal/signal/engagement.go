package signal

import (
	"fmt"

	"github.com/xxxsen/mfeed/internal/model"
	appErr "github.com/xxxsen/mfeed/internal/pkg/errors"
)

const (
	DefaultSaveCap       = 100
	DefaultCommentCap    = 50
	DefaultSaveWeight    = 0.6
	DefaultCommentWeight = 0.4
)

// EngagementConfig caps each counter before blending so one viral item
// cannot dominate.
type EngagementConfig struct {
	SaveCap       float64 `json:"save_cap"`
	CommentCap    float64 `json:"comment_cap"`
	SaveWeight    float64 `json:"save_weight"`
	CommentWeight float64 `json:"comment_weight"`
}

func DefaultEngagementConfig() EngagementConfig {
	return EngagementConfig{
		SaveCap:       DefaultSaveCap,
		CommentCap:    DefaultCommentCap,
		SaveWeight:    DefaultSaveWeight,
		CommentWeight: DefaultCommentWeight,
	}
}

func (c EngagementConfig) Validate() error {
	if c.SaveCap <= 0 || c.CommentCap <= 0 {
		return fmt.Errorf("engagement caps must be > 0: %w", appErr.ErrInvalid)
	}
	if c.SaveWeight < 0 || c.CommentWeight < 0 || c.SaveWeight+c.CommentWeight <= 0 {
		return fmt.Errorf("engagement weights must be >= 0 and not both zero: %w", appErr.ErrInvalid)
	}
	return nil
}

func capped(count int64, limit float64) float64 {
	if count <= 0 {
		return 0
	}
	r := float64(count) / limit
	if r > 1 {
		return 1
	}
	return r
}

// Engagement returns the capped, weighted save/comment rate in [0,1].
func Engagement(item model.ContentItem, cfg EngagementConfig) float64 {
	total := cfg.SaveWeight + cfg.CommentWeight
	if total <= 0 {
		return 0
	}
	sum := cfg.SaveWeight*capped(item.SaveCount, cfg.SaveCap) +
		cfg.CommentWeight*capped(item.CommentCount, cfg.CommentCap)
	return sum / total
}
