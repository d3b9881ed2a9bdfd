package signal

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mfeed/internal/model"
	"github.com/xxxsen/mfeed/internal/visibility"
)

func TestEngagementCapped(t *testing.T) {
	cfg := DefaultEngagementConfig()
	require.Equal(t, 0.0, Engagement(model.ContentItem{}, cfg))
	require.InDelta(t, 0.6*0.5+0.4*0.2, Engagement(model.ContentItem{SaveCount: 50, CommentCount: 10}, cfg), 1e-12)
	viral := Engagement(model.ContentItem{SaveCount: 1_000_000, CommentCount: 1_000_000}, cfg)
	require.InDelta(t, 1.0, viral, 1e-12)
	require.InDelta(t, 0.6, Engagement(model.ContentItem{SaveCount: 500}, cfg), 1e-12)
	require.Equal(t, 0.0, Engagement(model.ContentItem{SaveCount: -4}, cfg))
}

func TestEngagementConfigValidate(t *testing.T) {
	require.NoError(t, DefaultEngagementConfig().Validate())
	require.Error(t, EngagementConfig{SaveCap: 0, CommentCap: 1, SaveWeight: 1}.Validate())
	require.Error(t, EngagementConfig{SaveCap: 1, CommentCap: 1}.Validate())
}

func TestTemporal(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, 1.0, Temporal(now, now.Unix(), 0.01))
	require.InDelta(t, math.Exp(-0.01*24), Temporal(now, now.Add(-24*time.Hour).Unix(), 0.01), 1e-9)
	require.Greater(t, Temporal(now, now.Add(-time.Hour).Unix(), 0.01), Temporal(now, now.Add(-2*time.Hour).Unix(), 0.01))
}

func TestSeenDecayBounds(t *testing.T) {
	require.InDelta(t, 0.1, SeenDecay(0), 1e-12)
	prev := 0.0
	for d := 0.0; d <= 60; d += 0.25 {
		m := SeenDecay(d)
		require.GreaterOrEqual(t, m, 0.1)
		require.LessOrEqual(t, m, 1.0)
		require.GreaterOrEqual(t, m, prev)
		prev = m
	}
	require.InDelta(t, 1.0, SeenDecay(18), 1e-9)
	require.Less(t, SeenDecay(7), 1.0)
}

func TestSeenBaseDoubles(t *testing.T) {
	require.InDelta(t, 2*seenBase(0), seenBase(SeenDoublingDays), 1e-12)
	require.InDelta(t, 2*seenBase(5), seenBase(5+SeenDoublingDays), 1e-12)
	require.InDelta(t, 0.1*math.Sqrt2+0.45, SeenDecay(9), 1e-12)
}

func TestSeenMultiplier(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, 1.0, SeenMultiplier(now, 0, false, 30))
	require.InDelta(t, 0.1, SeenMultiplier(now, now.Unix(), true, 30), 1e-9)
	require.InDelta(t, 1.0, SeenMultiplier(now, now.Add(-18*24*time.Hour).Unix(), true, 30), 1e-9)
	require.Equal(t, 1.0, SeenMultiplier(now, now.Add(-31*24*time.Hour).Unix(), true, 30))
}

func TestPrivacyAffinity(t *testing.T) {
	require.Equal(t, FollowedAffinity, PrivacyAffinity(visibility.RelationFollowed))
	require.Equal(t, PublicAffinity, PrivacyAffinity(visibility.RelationPublic))
	require.Equal(t, SelfAffinity, PrivacyAffinity(visibility.RelationSelf))
	require.Equal(t, 0.0, PrivacyAffinity(visibility.RelationNone))
}

func TestExtractTopics(t *testing.T) {
	e := NewTopicExtractor(3)
	item := model.ContentItem{
		Tags: []string{" #Golang ", "Databases"},
		Body: "# Vector search\n\nVector indexes make vector search fast. #pgvector rocks.\n\n```go\nfunc ignored() {}\n```\n",
	}
	topics := e.Extract(item)
	require.True(t, topics.Has("golang"))
	require.True(t, topics.Has("databases"))
	require.True(t, topics.Has("pgvector"))
	require.True(t, topics.Has("vector"))
	require.True(t, topics.Has("search"))
	require.False(t, topics.Has("ignored"))
	require.False(t, topics.Has("the"))
}

func TestExtractEmptyBody(t *testing.T) {
	e := NewTopicExtractor(0)
	require.Empty(t, e.Extract(model.ContentItem{}))
}

func TestRecentTopicsCapped(t *testing.T) {
	e := NewTopicExtractor(2)
	saved := []model.ContentItem{
		{Tags: []string{"first"}},
		{Tags: []string{"second"}},
		{Tags: []string{"third"}},
	}
	set := e.RecentTopics(saved, 2)
	require.Equal(t, []string{"first", "second"}, set.Sorted())
}

func TestTopicNovelty(t *testing.T) {
	recent := TopicSet{"golang": {}, "databases": {}}
	require.Equal(t, 1.0, TopicNovelty(TopicSet{}, recent))
	require.Equal(t, 1.0, TopicNovelty(TopicSet{"cooking": {}}, TopicSet{}))
	require.Equal(t, 1.0, TopicNovelty(TopicSet{"cooking": {}}, recent))
	require.Equal(t, 0.5, TopicNovelty(TopicSet{"golang": {}}, recent))
	require.Equal(t, 0.75, TopicNovelty(TopicSet{"golang": {}, "cooking": {}}, recent))
}
