package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/mfeed/internal/cache"
	"github.com/xxxsen/mfeed/internal/candidate"
	"github.com/xxxsen/mfeed/internal/feed"
	"github.com/xxxsen/mfeed/internal/model"
	appErr "github.com/xxxsen/mfeed/internal/pkg/errors"
	"github.com/xxxsen/mfeed/internal/scoring"
	"github.com/xxxsen/mfeed/internal/signal"
	"github.com/xxxsen/mfeed/internal/vecmath"
	"github.com/xxxsen/mfeed/internal/visibility"
)

var errColdStart = errors.New("cold start")

type FeedConfig struct {
	Weights            scoring.Weights
	OverFetchFactor    int
	DiversityThreshold float64
	DiversityWindow    int
	TemporalDecayRate  float64
	SeenRetentionDays  int
	Engagement         signal.EngagementConfig
	RecentSaveLimit    int
	LookupTimeout      time.Duration
	MaxPageSize        int
	SnapshotRanking    bool
	MediaPublicURL     string
}

type FeedDeps struct {
	Interest InterestStore
	Content  ContentReader
	Edges    EdgeReader
	Profiles ProfileReader
	Seen     SeenReader
	Saves    SaveReader
	Source   candidate.Source
	Cache    *cache.Artifacts
	Monitor  Monitor
}

type RankRequest struct {
	IdentityID string
	PageSize   int
	Cursor     string
	Weights    *scoring.Override
}

type Page struct {
	Items      []model.FeedItem `json:"items"`
	NextCursor string           `json:"next_cursor"`
}

type FeedService struct {
	cfg      FeedConfig
	deps     FeedDeps
	monitor  Monitor
	engine   *scoring.Engine
	topics   *signal.TopicExtractor
	hydrator *feed.Hydrator
	now      func() time.Time
}

func NewFeedService(cfg FeedConfig, deps FeedDeps) *FeedService {
	if cfg.OverFetchFactor < 1 {
		cfg.OverFetchFactor = 10
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	if cfg.SeenRetentionDays <= 0 {
		cfg.SeenRetentionDays = signal.DefaultRetentionDays
	}
	if cfg.RecentSaveLimit <= 0 {
		cfg.RecentSaveLimit = signal.DefaultRecentSaveLimit
	}
	if cfg.TemporalDecayRate <= 0 {
		cfg.TemporalDecayRate = signal.DefaultTemporalDecayRate
	}
	if cfg.Engagement == (signal.EngagementConfig{}) {
		cfg.Engagement = signal.DefaultEngagementConfig()
	}
	if cfg.Weights.Sum() <= 0 {
		cfg.Weights = scoring.DefaultWeights()
	}
	monitor := deps.Monitor
	if monitor == nil {
		monitor = nopMonitor{}
	}
	return &FeedService{
		cfg:     cfg,
		deps:    deps,
		monitor: monitor,
		engine: scoring.NewEngine(scoring.Config{
			Weights:            cfg.Weights,
			DiversityThreshold: cfg.DiversityThreshold,
			DiversityWindow:    cfg.DiversityWindow,
		}),
		topics:   signal.NewTopicExtractor(signal.DefaultMaxBodyTerms),
		hydrator: feed.NewHydrator(deps.Profiles, cfg.MediaPublicURL),
		now:      time.Now,
	}
}

func (s *FeedService) MaxPageSize() int {
	return s.cfg.MaxPageSize
}

// RankFeed returns one page of the personalized feed of req.IdentityID.
// Only invalid input is reported as an error; upstream failures degrade per
// signal and, for essential inputs, to an empty page.
func (s *FeedService) RankFeed(ctx context.Context, req RankRequest) (*Page, error) {
	start := time.Now()
	page, err := s.rankFeed(ctx, req, start)
	if err != nil {
		s.monitor.ObserveRank("invalid", time.Since(start), -1)
		return nil, err
	}
	return page, nil
}

func (s *FeedService) rankFeed(ctx context.Context, req RankRequest, start time.Time) (*Page, error) {
	if strings.TrimSpace(req.IdentityID) == "" {
		return nil, fmt.Errorf("identity id is required: %w", appErr.ErrInvalid)
	}
	if err := feed.ValidatePageSize(req.PageSize, s.cfg.MaxPageSize); err != nil {
		return nil, err
	}
	if err := feed.ValidateCursor(req.Cursor); err != nil {
		return nil, err
	}
	if _, err := req.Weights.Apply(s.cfg.Weights); err != nil {
		return nil, fmt.Errorf("weights override: %w", err)
	}
	weights, err := s.resolveWeights(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("weights override: %w", err)
	}
	wkey := weights.Key()
	uid := req.IdentityID

	if cached, ok := s.deps.Cache.GetPage(ctx, uid, wkey, req.Cursor, req.PageSize); ok {
		s.monitor.ObserveRank("cached", time.Since(start), -1)
		return &Page{Items: nonNilItems(cached.Items), NextCursor: cached.NextCursor}, nil
	}

	var (
		ranked    []scoring.Candidate
		content   map[string]model.ContentItem
		cacheable = true
		snapshot  bool
	)
	if req.Cursor != "" && s.cfg.SnapshotRanking {
		ranked, snapshot = s.deps.Cache.GetRanking(ctx, uid, wkey)
	}
	if !snapshot {
		ranked, content, cacheable = s.rank(ctx, req, weights)
		if cacheable && s.cfg.SnapshotRanking {
			s.deps.Cache.SetRanking(ctx, uid, wkey, ranked)
		}
	}

	pageCands, next, err := feed.Paginate(ranked, req.Cursor, req.PageSize)
	if err != nil {
		return nil, err
	}
	if content == nil && len(pageCands) > 0 {
		content, err = s.fetchContent(ctx, pageCands)
		if err != nil {
			s.degrade(ctx, "content", err)
			s.monitor.ObserveRank("empty", time.Since(start), 0)
			return emptyPage(), nil
		}
	}
	page := &Page{Items: s.hydrator.Hydrate(ctx, pageCands, content), NextCursor: next}
	if cacheable {
		s.deps.Cache.SetPage(ctx, uid, wkey, req.Cursor, req.PageSize, &cache.PageBlob{Items: page.Items, NextCursor: page.NextCursor})
	}
	outcome := "ok"
	if len(page.Items) == 0 {
		outcome = "empty"
	}
	s.monitor.ObserveRank(outcome, time.Since(start), len(ranked))
	return page, nil
}

func emptyPage() *Page {
	return &Page{Items: []model.FeedItem{}}
}

func nonNilItems(items []model.FeedItem) []model.FeedItem {
	if items == nil {
		return []model.FeedItem{}
	}
	return items
}

// resolveWeights layers request override > feed profile > configured defaults.
func (s *FeedService) resolveWeights(ctx context.Context, req RankRequest) (scoring.Weights, error) {
	base := s.cfg.Weights
	if s.deps.Profiles != nil {
		lctx, cancel := s.lookupCtx(ctx)
		p, err := s.deps.Profiles.GetFeedProfile(lctx, req.IdentityID)
		cancel()
		switch {
		case err == nil:
			w, werr := scoring.NewWeights(p.Similarity, p.Temporal, p.Diversity, p.Engagement, p.Privacy)
			if werr != nil {
				logutil.GetLogger(ctx).Warn("ignore malformed feed profile", zap.String("identity_id", req.IdentityID), zap.Error(werr))
				break
			}
			base = w
		case appErr.IsNotFound(err):
		default:
			s.degrade(ctx, "profile", err)
		}
	}
	return req.Weights.Apply(base)
}

func (s *FeedService) lookupCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.LookupTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.LookupTimeout)
}

func (s *FeedService) degrade(ctx context.Context, name string, err error) {
	logutil.GetLogger(ctx).Warn("signal degraded", zap.String("signal", name), zap.Error(err))
	s.monitor.Degraded(name)
}

type lookups struct {
	interest  []float32
	following []string
	blocked   []string
	seen      map[string]int64
	topics    signal.TopicSet
}

// rank computes the full ranked list. cacheable is false when an essential
// input failed and the empty result must not be cached.
func (s *FeedService) rank(ctx context.Context, req RankRequest, w scoring.Weights) ([]scoring.Candidate, map[string]model.ContentItem, bool) {
	uid := req.IdentityID
	l := &lookups{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vec, found, err := s.loadInterest(gctx, uid)
		if err != nil {
			s.degrade(ctx, "interest", err)
			return err
		}
		if !found {
			return errColdStart
		}
		l.interest = vec
		return nil
	})
	g.Go(func() error {
		ids, err := s.loadBlocked(gctx, uid)
		if err != nil {
			if gctx.Err() == nil {
				s.degrade(ctx, "block", err)
			}
			return err
		}
		l.blocked = ids
		return nil
	})
	g.Go(func() error {
		ids, err := s.loadFollowing(gctx, uid)
		if err != nil && gctx.Err() == nil {
			s.degrade(ctx, "follow", err)
		}
		l.following = ids
		return nil
	})
	g.Go(func() error {
		seen, err := s.loadSeen(gctx, uid)
		if err != nil && gctx.Err() == nil {
			s.degrade(ctx, "seen", err)
		}
		l.seen = seen
		return nil
	})
	g.Go(func() error {
		topics, err := s.loadTopics(gctx, uid)
		if err != nil && gctx.Err() == nil {
			s.degrade(ctx, "topics", err)
		}
		l.topics = topics
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, errColdStart) {
			logutil.GetLogger(ctx).Debug("cold start, empty feed", zap.String("identity_id", uid))
			return []scoring.Candidate{}, map[string]model.ContentItem{}, true
		}
		return []scoring.Candidate{}, map[string]model.ContentItem{}, false
	}

	// the pool must not depend on page size: all pages cut one ranked list
	limit := s.cfg.MaxPageSize * s.cfg.OverFetchFactor
	hits, err := s.deps.Source.Search(ctx, l.interest, limit, candidate.Filter{ExcludeAuthors: l.blocked})
	if err != nil {
		s.degrade(ctx, "candidates", err)
		return []scoring.Candidate{}, map[string]model.ContentItem{}, false
	}
	if len(hits) == 0 {
		return []scoring.Candidate{}, map[string]model.ContentItem{}, true
	}
	scores := make(map[string]float32, len(hits))
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		if _, dup := scores[h.ID]; dup {
			continue
		}
		scores[h.ID] = h.Score
		ids = append(ids, h.ID)
	}

	lctx, cancel := s.lookupCtx(ctx)
	items, err := s.deps.Content.ListByIDs(lctx, ids)
	cancel()
	if err != nil {
		s.degrade(ctx, "content", err)
		return []scoring.Candidate{}, map[string]model.ContentItem{}, false
	}

	privacy := s.loadPrivacy(ctx, items)
	edges := visibility.NewEdges(l.following, l.blocked, privacy)
	visible := visibility.Filter(uid, items, edges)

	now := s.now()
	inputs := make([]scoring.Input, 0, len(visible))
	content := make(map[string]model.ContentItem, len(visible))
	for _, v := range visible {
		item := v.Item
		content[item.ID] = item
		seenAt, seen := l.seen[item.ID]
		inputs = append(inputs, scoring.Input{
			ID:           item.ID,
			Ctime:        item.Ctime,
			Vector:       normalized(item.Embedding),
			Similarity:   clamp01(float64(scores[item.ID])),
			Temporal:     signal.Temporal(now, item.Ctime, s.cfg.TemporalDecayRate),
			Engagement:   signal.Engagement(item, s.cfg.Engagement),
			Privacy:      signal.PrivacyAffinity(v.Relation),
			TopicNovelty: signal.TopicNovelty(s.topics.Extract(item), l.topics),
			Seen:         signal.SeenMultiplier(now, seenAt, seen, s.cfg.SeenRetentionDays),
		})
	}
	return s.engine.Rank(inputs, w), content, true
}

func normalized(v []float32) []float32 {
	if vecmath.CheckDim(v) != nil {
		return nil
	}
	out, err := vecmath.Normalize(v)
	if err != nil || vecmath.IsZero(out) {
		return nil
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (s *FeedService) fetchContent(ctx context.Context, page []scoring.Candidate) (map[string]model.ContentItem, error) {
	ids := make([]string, 0, len(page))
	for _, c := range page {
		ids = append(ids, c.ID)
	}
	lctx, cancel := s.lookupCtx(ctx)
	defer cancel()
	items, err := s.deps.Content.ListByIDs(lctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.ContentItem, len(items))
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}

// loadPrivacy returns author privacy flags. On failure the map is empty so
// that every author is treated as private.
func (s *FeedService) loadPrivacy(ctx context.Context, items []model.ContentItem) map[string]bool {
	authors := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.AuthorID]; ok {
			continue
		}
		seen[item.AuthorID] = struct{}{}
		authors = append(authors, item.AuthorID)
	}
	if s.deps.Profiles == nil || len(authors) == 0 {
		return map[string]bool{}
	}
	lctx, cancel := s.lookupCtx(ctx)
	defer cancel()
	privacy, err := s.deps.Profiles.ListPrivacy(lctx, authors)
	if err != nil {
		s.degrade(ctx, "privacy", err)
		return map[string]bool{}
	}
	return privacy
}

func (s *FeedService) loadInterest(ctx context.Context, uid string) ([]float32, bool, error) {
	if vec, found, ok := s.deps.Cache.GetInterest(ctx, uid); ok {
		return vec, found, nil
	}
	lctx, cancel := s.lookupCtx(ctx)
	defer cancel()
	vec, found, err := s.deps.Interest.Get(lctx, uid)
	if err != nil {
		return nil, false, fmt.Errorf("load interest vector: %w", err)
	}
	if found {
		if err := vecmath.CheckDim(vec); err != nil {
			return nil, false, fmt.Errorf("stored interest vector: %w", err)
		}
		vec, _ = vecmath.Normalize(vec)
		if vecmath.IsZero(vec) {
			vec, found = nil, false
		}
	}
	s.deps.Cache.SetInterest(ctx, uid, vec, found)
	return vec, found, nil
}

func (s *FeedService) loadFollowing(ctx context.Context, uid string) ([]string, error) {
	if ids, ok := s.deps.Cache.GetFollowing(ctx, uid); ok {
		return ids, nil
	}
	lctx, cancel := s.lookupCtx(ctx)
	defer cancel()
	ids, err := s.deps.Edges.ListFollowing(lctx, uid)
	if err != nil {
		return nil, err
	}
	s.deps.Cache.SetFollowing(ctx, uid, ids)
	return ids, nil
}

func (s *FeedService) loadBlocked(ctx context.Context, uid string) ([]string, error) {
	if ids, ok := s.deps.Cache.GetBlocked(ctx, uid); ok {
		return ids, nil
	}
	lctx, cancel := s.lookupCtx(ctx)
	defer cancel()
	ids, err := s.deps.Edges.ListBlocked(lctx, uid)
	if err != nil {
		return nil, err
	}
	s.deps.Cache.SetBlocked(ctx, uid, ids)
	return ids, nil
}

func (s *FeedService) loadSeen(ctx context.Context, uid string) (map[string]int64, error) {
	if seen, ok := s.deps.Cache.GetSeen(ctx, uid); ok {
		return seen, nil
	}
	if s.deps.Seen == nil {
		return nil, nil
	}
	since := s.now().Add(-time.Duration(s.cfg.SeenRetentionDays) * 24 * time.Hour).Unix()
	lctx, cancel := s.lookupCtx(ctx)
	defer cancel()
	records, err := s.deps.Seen.ListSince(lctx, uid, since)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]int64, len(records))
	for _, r := range records {
		if r.SeenAt > seen[r.ContentID] {
			seen[r.ContentID] = r.SeenAt
		}
	}
	s.deps.Cache.SetSeen(ctx, uid, seen)
	return seen, nil
}

func (s *FeedService) loadTopics(ctx context.Context, uid string) (signal.TopicSet, error) {
	topics := signal.TopicSet{}
	if cached, ok := s.deps.Cache.GetTopics(ctx, uid); ok {
		for _, t := range cached {
			topics.Add(t)
		}
		return topics, nil
	}
	if s.deps.Saves == nil {
		return topics, nil
	}
	lctx, cancel := s.lookupCtx(ctx)
	defer cancel()
	saved, err := s.deps.Saves.ListRecent(lctx, uid, uint(s.cfg.RecentSaveLimit))
	if err != nil {
		return topics, err
	}
	ids := make([]string, 0, len(saved))
	for _, item := range saved {
		ids = append(ids, item.ContentID)
	}
	var items []model.ContentItem
	if len(ids) > 0 {
		items, err = s.deps.Content.ListByIDs(lctx, ids)
		if err != nil {
			return topics, err
		}
	}
	topics = s.topics.RecentTopics(items, s.cfg.RecentSaveLimit)
	s.deps.Cache.SetTopics(ctx, uid, topics.Sorted())
	return topics, nil
}
