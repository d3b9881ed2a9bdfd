package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mfeed/internal/model"
	"github.com/xxxsen/mfeed/internal/scoring"
)

const (
	KindInterest = "iv"
	KindSeen     = "seen"
	KindFollow   = "follow"
	KindBlock    = "block"
	KindTopics   = "topics"
	KindRanking  = "rank"
	KindPage     = "page"
)

type TTLs struct {
	Interest time.Duration
	Seen     time.Duration
	Follow   time.Duration
	Block    time.Duration
	Topics   time.Duration
	Ranking  time.Duration
	Page     time.Duration
}

// Observer is told about every artifact lookup, typically a metrics.Monitor.
type Observer interface {
	CacheLookup(kind string, hit bool)
}

// PageBlob is a rendered feed page.
type PageBlob struct {
	Items      []model.FeedItem `json:"items"`
	NextCursor string           `json:"next_cursor"`
}

// Artifacts is a typed view over a Store. Store failures are logged and
// reported as misses; the cache never fails a request.
type Artifacts struct {
	store    Store
	ttl      TTLs
	observer Observer
}

func NewArtifacts(store Store, ttl TTLs, observer Observer) *Artifacts {
	return &Artifacts{store: store, ttl: ttl, observer: observer}
}

func InterestKey(identityID string) string { return KindInterest + ":" + identityID }
func SeenKey(identityID string) string     { return KindSeen + ":" + identityID }
func FollowKey(identityID string) string   { return KindFollow + ":" + identityID }
func BlockKey(identityID string) string    { return KindBlock + ":" + identityID }
func TopicsKey(identityID string) string   { return KindTopics + ":" + identityID }

func RankingKey(identityID, weightsKey string) string {
	return KindRanking + ":" + identityID + ":" + weightsKey
}

func PageKey(identityID, weightsKey, cursor string, pageSize int) string {
	return KindPage + ":" + identityID + ":" + weightsKey + ":" + cursor + ":" + strconv.Itoa(pageSize)
}

func (a *Artifacts) get(ctx context.Context, kind, key string, dst interface{}) bool {
	if a == nil || a.store == nil {
		return false
	}
	blob, ok, err := a.store.Get(ctx, key)
	if err != nil {
		logutil.GetLogger(ctx).Warn("cache get failed", zap.String("key", key), zap.Error(err))
		ok = false
	}
	if ok {
		if err := json.Unmarshal(blob, dst); err != nil {
			logutil.GetLogger(ctx).Warn("cache decode failed", zap.String("key", key), zap.Error(err))
			ok = false
		}
	}
	if a.observer != nil {
		a.observer.CacheLookup(kind, ok)
	}
	if ok {
		logutil.GetLogger(ctx).Debug("cache hit", zap.String("key", key))
	}
	return ok
}

func (a *Artifacts) set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if a == nil || a.store == nil || ttl <= 0 {
		return
	}
	blob, err := json.Marshal(value)
	if err != nil {
		logutil.GetLogger(ctx).Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := a.store.Set(ctx, key, blob, ttl); err != nil {
		logutil.GetLogger(ctx).Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

type interestBlob struct {
	Embedding []float32 `json:"embedding"`
	Found     bool      `json:"found"`
}

// GetInterest returns a cached lookup result; found false is a cached cold start.
func (a *Artifacts) GetInterest(ctx context.Context, identityID string) (vec []float32, found bool, ok bool) {
	var blob interestBlob
	if !a.get(ctx, KindInterest, InterestKey(identityID), &blob) {
		return nil, false, false
	}
	return blob.Embedding, blob.Found, true
}

func (a *Artifacts) SetInterest(ctx context.Context, identityID string, vec []float32, found bool) {
	a.set(ctx, InterestKey(identityID), interestBlob{Embedding: vec, Found: found}, a.ttl.Interest)
}

func (a *Artifacts) GetFollowing(ctx context.Context, identityID string) ([]string, bool) {
	var ids []string
	ok := a.get(ctx, KindFollow, FollowKey(identityID), &ids)
	return ids, ok
}

func (a *Artifacts) SetFollowing(ctx context.Context, identityID string, ids []string) {
	a.set(ctx, FollowKey(identityID), nonNil(ids), a.ttl.Follow)
}

func (a *Artifacts) GetBlocked(ctx context.Context, identityID string) ([]string, bool) {
	var ids []string
	ok := a.get(ctx, KindBlock, BlockKey(identityID), &ids)
	return ids, ok
}

func (a *Artifacts) SetBlocked(ctx context.Context, identityID string, ids []string) {
	a.set(ctx, BlockKey(identityID), nonNil(ids), a.ttl.Block)
}

// GetSeen returns content id to last seen unix time.
func (a *Artifacts) GetSeen(ctx context.Context, identityID string) (map[string]int64, bool) {
	var seen map[string]int64
	ok := a.get(ctx, KindSeen, SeenKey(identityID), &seen)
	return seen, ok
}

func (a *Artifacts) SetSeen(ctx context.Context, identityID string, seen map[string]int64) {
	if seen == nil {
		seen = map[string]int64{}
	}
	a.set(ctx, SeenKey(identityID), seen, a.ttl.Seen)
}

func (a *Artifacts) GetTopics(ctx context.Context, identityID string) ([]string, bool) {
	var topics []string
	ok := a.get(ctx, KindTopics, TopicsKey(identityID), &topics)
	return topics, ok
}

func (a *Artifacts) SetTopics(ctx context.Context, identityID string, topics []string) {
	a.set(ctx, TopicsKey(identityID), nonNil(topics), a.ttl.Topics)
}

// GetRanking returns a ranked list snapshot used to serve later pages.
func (a *Artifacts) GetRanking(ctx context.Context, identityID, weightsKey string) ([]scoring.Candidate, bool) {
	var ranked []scoring.Candidate
	ok := a.get(ctx, KindRanking, RankingKey(identityID, weightsKey), &ranked)
	return ranked, ok
}

func (a *Artifacts) SetRanking(ctx context.Context, identityID, weightsKey string, ranked []scoring.Candidate) {
	if ranked == nil {
		ranked = []scoring.Candidate{}
	}
	a.set(ctx, RankingKey(identityID, weightsKey), ranked, a.ttl.Ranking)
}

func (a *Artifacts) GetPage(ctx context.Context, identityID, weightsKey, cursor string, pageSize int) (*PageBlob, bool) {
	var page PageBlob
	if !a.get(ctx, KindPage, PageKey(identityID, weightsKey, cursor, pageSize), &page) {
		return nil, false
	}
	return &page, true
}

func (a *Artifacts) SetPage(ctx context.Context, identityID, weightsKey, cursor string, pageSize int, page *PageBlob) {
	a.set(ctx, PageKey(identityID, weightsKey, cursor, pageSize), page, a.ttl.Page)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
