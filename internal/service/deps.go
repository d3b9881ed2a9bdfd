package service

import (
	"context"
	"time"

	"github.com/xxxsen/mfeed/internal/model"
)

// Read interfaces over the relational store. The repo package satisfies all
// of them; tests use in-memory fakes.

type InterestStore interface {
	Get(ctx context.Context, identityID string) ([]float32, bool, error)
}

type InterestWriter interface {
	InterestStore
	Save(ctx context.Context, iv *model.InterestVector) error
}

type ContentReader interface {
	ListByIDs(ctx context.Context, ids []string) ([]model.ContentItem, error)
}

type EdgeReader interface {
	ListFollowing(ctx context.Context, followerID string) ([]string, error)
	ListBlocked(ctx context.Context, identityID string) ([]string, error)
}

type ProfileReader interface {
	ListAuthors(ctx context.Context, ids []string) (map[string]model.AuthorProfile, error)
	ListMedia(ctx context.Context, postIDs []string) (map[string][]model.Media, error)
	ListPrivacy(ctx context.Context, ids []string) (map[string]bool, error)
	GetFeedProfile(ctx context.Context, identityID string) (*model.FeedProfile, error)
}

type SeenReader interface {
	ListSince(ctx context.Context, identityID string, since int64) ([]model.SeenRecord, error)
}

type SeenStore interface {
	SeenReader
	MarkSeen(ctx context.Context, identityID string, contentIDs []string, seenAt int64) error
	DeleteBefore(ctx context.Context, cutoff int64) (int64, error)
}

type SaveReader interface {
	ListRecent(ctx context.Context, identityID string, limit uint) ([]model.SavedItem, error)
}

// Monitor receives request and degradation events, see metrics.Monitor.
type Monitor interface {
	ObserveRank(outcome string, elapsed time.Duration, candidates int)
	Degraded(signal string)
}

type nopMonitor struct{}

func (nopMonitor) ObserveRank(string, time.Duration, int) {}
func (nopMonitor) Degraded(string)                       {}

type InterestRepo interface {
	InterestWriter
	Delete(ctx context.Context, identityID string) error
}

type AuthoredReader interface {
	ListByIDs(ctx context.Context, ids []string) ([]model.ContentItem, error)
	ListRecentByAuthor(ctx context.Context, authorID string, limit uint) ([]model.ContentItem, error)
}

type ActivityReader interface {
	SaveReader
	ListActiveIdentities(ctx context.Context, since int64, limit int) ([]string, error)
}

type EmbeddingWriter interface {
	ListMissingEmbeddings(ctx context.Context, limit uint) ([]model.ContentItem, error)
	ListEmbedded(ctx context.Context, afterID string, limit uint) ([]model.ContentItem, error)
	SaveEmbedding(ctx context.Context, id string, embedding []float32, mtime int64) error
}

// IndexWriter receives freshly embedded posts, see candidate.MemoryIndex.
type IndexWriter interface {
	Upsert(id, authorID string, vector []float32) error
}

// Invalidator reports removed cache entries per mutation event.
type Invalidator interface {
	Invalidated(event string, removed int)
}
