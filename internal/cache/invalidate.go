package cache

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Invalidation hooks raised by mutation events. Each returns the number of
// removed entries; failures are logged and the first one is returned.

func (a *Artifacts) invalidate(ctx context.Context, patterns ...string) (int, error) {
	if a == nil || a.store == nil {
		return 0, nil
	}
	total := 0
	var firstErr error
	for _, pattern := range patterns {
		n, err := a.store.Invalidate(ctx, pattern)
		total += n
		if err != nil {
			logutil.GetLogger(ctx).Error("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return total, firstErr
}

func rankedFor(identityID string) []string {
	id := EscapeGlob(identityID)
	return []string{
		KindRanking + ":" + id + ":*",
		KindPage + ":" + id + ":*",
	}
}

// OnFollowChanged handles follow and unfollow of followee by follower.
func (a *Artifacts) OnFollowChanged(ctx context.Context, followerID, followeeID string) (int, error) {
	patterns := append([]string{EscapeGlob(FollowKey(followerID))}, rankedFor(followerID)...)
	return a.invalidate(ctx, patterns...)
}

// OnBlockChanged handles block and unblock; both parties are affected.
func (a *Artifacts) OnBlockChanged(ctx context.Context, blockerID, blockedID string) (int, error) {
	patterns := []string{EscapeGlob(BlockKey(blockerID)), EscapeGlob(BlockKey(blockedID))}
	patterns = append(patterns, rankedFor(blockerID)...)
	patterns = append(patterns, rankedFor(blockedID)...)
	return a.invalidate(ctx, patterns...)
}

// OnNewPost drops every ranked list so the post becomes eligible immediately.
func (a *Artifacts) OnNewPost(ctx context.Context, authorID string) (int, error) {
	return a.invalidate(ctx, KindRanking+":*", KindPage+":*")
}

// OnPrivacyChanged drops every ranked list, the owner may appear in any of them.
func (a *Artifacts) OnPrivacyChanged(ctx context.Context, ownerID string) (int, error) {
	return a.invalidate(ctx, KindRanking+":*", KindPage+":*")
}

func (a *Artifacts) OnInterestRebuilt(ctx context.Context, identityID string) (int, error) {
	patterns := append([]string{EscapeGlob(InterestKey(identityID)), EscapeGlob(TopicsKey(identityID))}, rankedFor(identityID)...)
	return a.invalidate(ctx, patterns...)
}

// OnSeen refreshes the seen set and drops served pages of identityID.
// Ranked snapshots stay for stable paging.
func (a *Artifacts) OnSeen(ctx context.Context, identityID string) (int, error) {
	return a.invalidate(ctx, EscapeGlob(SeenKey(identityID)), KindPage+":"+EscapeGlob(identityID)+":*")
}
