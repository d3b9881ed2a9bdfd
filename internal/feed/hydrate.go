package feed

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mfeed/internal/model"
	"github.com/xxxsen/mfeed/internal/scoring"
)

// ProfileReader is the batch read side used for hydration, see repo.ProfileRepo.
type ProfileReader interface {
	ListAuthors(ctx context.Context, ids []string) (map[string]model.AuthorProfile, error)
	ListMedia(ctx context.Context, postIDs []string) (map[string][]model.Media, error)
}

type Hydrator struct {
	profiles  ProfileReader
	publicURL string
}

func NewHydrator(profiles ProfileReader, publicURL string) *Hydrator {
	return &Hydrator{profiles: profiles, publicURL: publicURL}
}

// MediaURL resolves a stored media key against the public base url.
func (h *Hydrator) MediaURL(key string) string {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
		return key
	}
	if h.publicURL == "" {
		return key
	}
	return strings.TrimSuffix(h.publicURL, "/") + "/" + key
}

// Hydrate builds feed items for page only. Profile or media failures leave
// those fields empty and never drop an item.
func (h *Hydrator) Hydrate(ctx context.Context, page []scoring.Candidate, content map[string]model.ContentItem) []model.FeedItem {
	out := make([]model.FeedItem, 0, len(page))
	if len(page) == 0 {
		return out
	}
	postIDs := make([]string, 0, len(page))
	authorIDs := make([]string, 0, len(page))
	for _, c := range page {
		item, ok := content[c.ID]
		if !ok {
			continue
		}
		postIDs = append(postIDs, item.ID)
		authorIDs = append(authorIDs, item.AuthorID)
	}

	var authors map[string]model.AuthorProfile
	var media map[string][]model.Media
	if h != nil && h.profiles != nil {
		var err error
		authors, err = h.profiles.ListAuthors(ctx, authorIDs)
		if err != nil {
			logutil.GetLogger(ctx).Warn("hydrate authors failed", zap.Error(err))
		}
		media, err = h.profiles.ListMedia(ctx, postIDs)
		if err != nil {
			logutil.GetLogger(ctx).Warn("hydrate media failed", zap.Error(err))
		}
	}

	for _, c := range page {
		item, ok := content[c.ID]
		if !ok {
			continue
		}
		fi := model.FeedItem{ContentItem: item, Score: c.Final}
		if p, ok := authors[item.AuthorID]; ok {
			p.AvatarURL = h.MediaURL(p.AvatarKey)
			fi.Author = &p
		}
		for _, m := range media[item.ID] {
			m.URL = h.MediaURL(m.Key)
			fi.Media = append(fi.Media, m)
		}
		out = append(out, fi)
	}
	return out
}
