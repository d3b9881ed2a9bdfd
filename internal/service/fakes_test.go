package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/xxxsen/mfeed/internal/candidate"
	"github.com/xxxsen/mfeed/internal/model"
	appErr "github.com/xxxsen/mfeed/internal/pkg/errors"
	"github.com/xxxsen/mfeed/internal/vecmath"
)

var errDown = errors.New("down")

func axis(i int) []float32 {
	v := make([]float32, vecmath.Dim)
	v[i] = 1
	return v
}

func blend(i, j int) []float32 {
	v := make([]float32, vecmath.Dim)
	v[i] = 1
	v[j] = 1
	out, _ := vecmath.Normalize(v)
	return out
}

type fakeInterest struct {
	mu      sync.Mutex
	vectors map[string][]float32
	saved   map[string]*model.InterestVector
	deleted []string
	err     error
}

func newFakeInterest() *fakeInterest {
	return &fakeInterest{vectors: map[string][]float32{}, saved: map[string]*model.InterestVector{}}
}

func (f *fakeInterest) Get(_ context.Context, id string) ([]float32, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, false, f.err
	}
	v, ok := f.vectors[id]
	return v, ok, nil
}

func (f *fakeInterest) Save(_ context.Context, iv *model.InterestVector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[iv.IdentityID] = iv
	f.vectors[iv.IdentityID] = iv.Embedding
	return nil
}

func (f *fakeInterest) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.vectors, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeContent struct {
	mu     sync.Mutex
	items  map[string]model.ContentItem
	err    error
	embeds map[string][]float32
}

func newFakeContent(items ...model.ContentItem) *fakeContent {
	f := &fakeContent{items: map[string]model.ContentItem{}, embeds: map[string][]float32{}}
	for _, item := range items {
		f.items[item.ID] = item
	}
	return f
}

func (f *fakeContent) ListByIDs(_ context.Context, ids []string) ([]model.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.ContentItem, 0, len(ids))
	for _, id := range ids {
		if item, ok := f.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeContent) ListRecentByAuthor(_ context.Context, author string, limit uint) ([]model.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ContentItem, 0)
	for _, item := range f.items {
		if item.AuthorID == author {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ctime > out[j].Ctime })
	if uint(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeContent) ListMissingEmbeddings(_ context.Context, limit uint) ([]model.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ContentItem, 0)
	for _, item := range f.items {
		if len(item.Embedding) == 0 {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if uint(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeContent) ListEmbedded(_ context.Context, after string, limit uint) ([]model.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ContentItem, 0)
	for _, item := range f.items {
		if len(item.Embedding) > 0 && item.ID > after {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if uint(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeContent) SaveEmbedding(_ context.Context, id string, emb []float32, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return appErr.ErrNotFound
	}
	item.Embedding = emb
	f.items[id] = item
	f.embeds[id] = emb
	return nil
}

type fakeEdges struct {
	mu         sync.Mutex
	following  map[string][]string
	blocked    map[string][]string
	followErr  error
	blockErr   error
	blockCalls int
}

func (f *fakeEdges) ListFollowing(_ context.Context, id string) ([]string, error) {
	if f.followErr != nil {
		return nil, f.followErr
	}
	return f.following[id], nil
}

func (f *fakeEdges) ListBlocked(_ context.Context, id string) ([]string, error) {
	f.mu.Lock()
	f.blockCalls++
	f.mu.Unlock()
	if f.blockErr != nil {
		return nil, f.blockErr
	}
	return f.blocked[id], nil
}

type fakeProfiles struct {
	private    map[string]bool
	profiles   map[string]*model.FeedProfile
	privacyErr error
	profileErr error
}

func (f *fakeProfiles) ListAuthors(_ context.Context, ids []string) (map[string]model.AuthorProfile, error) {
	out := make(map[string]model.AuthorProfile, len(ids))
	for _, id := range ids {
		out[id] = model.AuthorProfile{ID: id, DisplayName: "name-" + id, IsPrivate: f.private[id]}
	}
	return out, nil
}

func (f *fakeProfiles) ListMedia(context.Context, []string) (map[string][]model.Media, error) {
	return map[string][]model.Media{}, nil
}

func (f *fakeProfiles) ListPrivacy(_ context.Context, ids []string) (map[string]bool, error) {
	if f.privacyErr != nil {
		return nil, f.privacyErr
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		if p, ok := f.private[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeProfiles) GetFeedProfile(_ context.Context, id string) (*model.FeedProfile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	if p, ok := f.profiles[id]; ok {
		return p, nil
	}
	return nil, appErr.ErrNotFound
}

type fakeSeen struct {
	mu      sync.Mutex
	records map[string][]model.SeenRecord
	err     error
	marked  map[string][]string
	cutoff  int64
	deleteN int64
}

func newFakeSeen() *fakeSeen {
	return &fakeSeen{records: map[string][]model.SeenRecord{}, marked: map[string][]string{}}
}

func (f *fakeSeen) ListSince(_ context.Context, id string, since int64) ([]model.SeenRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.SeenRecord, 0)
	for _, r := range f.records[id] {
		if r.SeenAt >= since {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSeen) MarkSeen(_ context.Context, id string, ids []string, seenAt int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.marked[id] = append(f.marked[id], ids...)
	for _, cid := range ids {
		f.records[id] = append(f.records[id], model.SeenRecord{IdentityID: id, ContentID: cid, SeenAt: seenAt})
	}
	return nil
}

func (f *fakeSeen) DeleteBefore(_ context.Context, cutoff int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoff = cutoff
	return f.deleteN, nil
}

type fakeSaves struct {
	saves  map[string][]model.SavedItem
	active []string
	err    error
}

func (f *fakeSaves) ListRecent(_ context.Context, id string, limit uint) ([]model.SavedItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := f.saves[id]
	if uint(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeSaves) ListActiveIdentities(context.Context, int64, int) ([]string, error) {
	return f.active, nil
}

type countingSource struct {
	mu    sync.Mutex
	next  candidate.Source
	calls int
	err   error
	last  candidate.Filter
}

func (c *countingSource) Search(ctx context.Context, q []float32, limit int, filter candidate.Filter) ([]candidate.Hit, error) {
	c.mu.Lock()
	c.calls++
	c.last = filter
	err := c.err
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c.next.Search(ctx, q, limit, filter)
}

type recordingMonitor struct {
	mu       sync.Mutex
	outcomes []string
	degraded map[string]int
	removed  map[string]int
}

func newRecordingMonitor() *recordingMonitor {
	return &recordingMonitor{degraded: map[string]int{}, removed: map[string]int{}}
}

func (m *recordingMonitor) ObserveRank(outcome string, _ time.Duration, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *recordingMonitor) Degraded(signal string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.degraded[signal]++
}

func (m *recordingMonitor) Invalidated(event string, removed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed[event] += removed
}
