package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logger"

	"github.com/xxxsen/mfeed/internal/candidate"
	appErr "github.com/xxxsen/mfeed/internal/pkg/errors"
	"github.com/xxxsen/mfeed/internal/scoring"
	"github.com/xxxsen/mfeed/internal/signal"
)

const (
	defaultOverFetchFactor    = 10
	defaultDiversityThreshold = 0.85
	defaultDiversityWindow    = 50
	defaultLookupTimeoutMs    = 300
	defaultMaxPageSize        = 100
	defaultIndexTimeoutMs     = 800
	defaultCacheSize          = 10000
	defaultEmbedCacheSize     = 2048
)

type Config struct {
	Port      int              `json:"port"`
	JWTSecret string           `json:"jwt_secret"`
	LogConfig logger.LogConfig `json:"log_config"`
	Database  DatabaseConfig   `json:"database"`
	Cache     CacheConfig      `json:"cache"`
	Ranking   RankingConfig    `json:"ranking"`
	Index     IndexConfig      `json:"index"`
	AI        AIConfig         `json:"ai"`
	Media     MediaConfig      `json:"media"`
	Jobs      JobsConfig       `json:"jobs"`
	CORS      []string         `json:"cors_allowlist"`
	RateLimit RateLimitConfig  `json:"rate_limit"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type CacheTTLConfig struct {
	Interest int `json:"interest"`
	Seen     int `json:"seen"`
	Follow   int `json:"follow"`
	Block    int `json:"block"`
	Topics   int `json:"topics"`
	Ranking  int `json:"ranking"`
	Page     int `json:"page"`
}

type CacheConfig struct {
	Type       string         `json:"type"`
	Size       int            `json:"size"`
	RedisURL   string         `json:"redis_url"`
	TTLSeconds CacheTTLConfig `json:"ttl_seconds"`
}

type RankingConfig struct {
	Weights            *scoring.Weights         `json:"weights"`
	OverFetchFactor    *int                     `json:"over_fetch_factor"`
	DiversityThreshold *float64                 `json:"diversity_threshold"`
	DiversityWindow    int                      `json:"diversity_window"`
	TemporalDecayRate  *float64                 `json:"temporal_decay_rate"`
	SeenRetentionDays  int                      `json:"seen_retention_days"`
	Engagement         *signal.EngagementConfig `json:"engagement"`
	RecentSaveLimit    int                      `json:"recent_save_limit"`
	LookupTimeoutMs    int                      `json:"lookup_timeout_ms"`
	MaxPageSize        int                      `json:"max_page_size"`
	SnapshotRanking    bool                     `json:"snapshot_ranking"`
}

type IndexConfig struct {
	Type      string                  `json:"type"`
	TimeoutMs int                     `json:"timeout_ms"`
	Breaker   candidate.BreakerConfig `json:"breaker"`
}

type AIProviderConfig struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	APIKey   string `json:"api_key"`
	BaseURL  string `json:"base_url"`
}

// AIConfig configures the embedder. Provider empty disables content embedding.
type AIConfig struct {
	AIProviderConfig
	Timeout           int                `json:"timeout"`
	TaskType          string             `json:"task_type"`
	Fallbacks         []AIProviderConfig `json:"fallbacks"`
	CacheSize         int                `json:"cache_size"`
	CacheTTLSeconds   int                `json:"cache_ttl_seconds"`
	CacheMaxAgeDays   int                `json:"cache_max_age_days"`
	EmbedBatchSize    int                `json:"embed_batch_size"`
	InterestSaveLimit int                `json:"interest_save_limit"`
}

type MediaConfig struct {
	PublicURL string `json:"public_url"`
}

// JobsConfig holds cron specs; an empty spec disables that job.
type JobsConfig struct {
	SeenPurge             string `json:"seen_purge"`
	InterestRebuild       string `json:"interest_rebuild"`
	ContentEmbedding      string `json:"content_embedding"`
	EmbeddingCacheCleanup string `json:"embedding_cache_cleanup"`
}

type RateLimitConfig struct {
	Limit         int `json:"limit"`
	WindowSeconds int `json:"window_seconds"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w: %w", appErr.ErrConfiguration, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w: %w", appErr.ErrConfiguration, err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, fmt.Errorf("%w: %w", appErr.ErrConfiguration, err)
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if c.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	if c.Database.DSN == "" && c.Database.Host == "" {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	if c.Database.DSN == "" && c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if err := c.Cache.normalize(); err != nil {
		return err
	}
	if err := c.Ranking.normalize(); err != nil {
		return err
	}
	if err := c.Index.normalize(); err != nil {
		return err
	}
	c.AI.normalize()
	if c.RateLimit.WindowSeconds <= 0 {
		c.RateLimit.WindowSeconds = 60
	}
	return nil
}

func (c *CacheConfig) normalize() error {
	c.Type = strings.ToLower(strings.TrimSpace(c.Type))
	if c.Type == "" {
		c.Type = "memory"
	}
	switch c.Type {
	case "memory":
		if c.Size <= 0 {
			c.Size = defaultCacheSize
		}
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("cache.redis_url is required for redis cache")
		}
	default:
		return fmt.Errorf("cache.type must be memory or redis")
	}
	ttl := &c.TTLSeconds
	fillTTL(&ttl.Interest, 3600)
	fillTTL(&ttl.Seen, 120)
	fillTTL(&ttl.Follow, 300)
	fillTTL(&ttl.Block, 300)
	fillTTL(&ttl.Topics, 600)
	fillTTL(&ttl.Ranking, 300)
	fillTTL(&ttl.Page, 60)
	return nil
}

func fillTTL(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

func (r *RankingConfig) normalize() error {
	if r.Weights == nil {
		w := scoring.DefaultWeights()
		r.Weights = &w
	}
	w, err := scoring.NewWeights(r.Weights.Similarity, r.Weights.Temporal, r.Weights.Diversity, r.Weights.Engagement, r.Weights.Privacy)
	if err != nil {
		return fmt.Errorf("ranking.weights: %w", err)
	}
	r.Weights = &w
	if r.OverFetchFactor == nil {
		v := defaultOverFetchFactor
		r.OverFetchFactor = &v
	}
	if *r.OverFetchFactor < 1 {
		return fmt.Errorf("ranking.over_fetch_factor must be >= 1")
	}
	if r.DiversityThreshold == nil {
		v := defaultDiversityThreshold
		r.DiversityThreshold = &v
	}
	if *r.DiversityThreshold < 0 || *r.DiversityThreshold > 1 {
		return fmt.Errorf("ranking.diversity_threshold must be within [0,1]")
	}
	if r.DiversityWindow == 0 {
		r.DiversityWindow = defaultDiversityWindow
	}
	if r.DiversityWindow < 0 {
		return fmt.Errorf("ranking.diversity_window must be >= 0")
	}
	if r.TemporalDecayRate == nil {
		v := signal.DefaultTemporalDecayRate
		r.TemporalDecayRate = &v
	}
	if *r.TemporalDecayRate <= 0 {
		return fmt.Errorf("ranking.temporal_decay_rate must be > 0")
	}
	if r.SeenRetentionDays == 0 {
		r.SeenRetentionDays = signal.DefaultRetentionDays
	}
	if r.SeenRetentionDays < 0 {
		return fmt.Errorf("ranking.seen_retention_days must be > 0")
	}
	if r.Engagement == nil {
		e := signal.DefaultEngagementConfig()
		r.Engagement = &e
	}
	if err := r.Engagement.Validate(); err != nil {
		return fmt.Errorf("ranking.engagement: %w", err)
	}
	if r.RecentSaveLimit <= 0 {
		r.RecentSaveLimit = signal.DefaultRecentSaveLimit
	}
	if r.LookupTimeoutMs <= 0 {
		r.LookupTimeoutMs = defaultLookupTimeoutMs
	}
	if r.MaxPageSize <= 0 {
		r.MaxPageSize = defaultMaxPageSize
	}
	return nil
}

func (i *IndexConfig) normalize() error {
	i.Type = strings.ToLower(strings.TrimSpace(i.Type))
	if i.Type == "" {
		i.Type = "pgvector"
	}
	if i.Type != "pgvector" && i.Type != "memory" {
		return fmt.Errorf("index.type must be pgvector or memory")
	}
	if i.TimeoutMs <= 0 {
		i.TimeoutMs = defaultIndexTimeoutMs
	}
	def := candidate.DefaultBreakerConfig()
	if i.Breaker.MaxRequests == 0 {
		i.Breaker.MaxRequests = def.MaxRequests
	}
	if i.Breaker.IntervalSeconds <= 0 {
		i.Breaker.IntervalSeconds = def.IntervalSeconds
	}
	if i.Breaker.TimeoutSeconds <= 0 {
		i.Breaker.TimeoutSeconds = def.TimeoutSeconds
	}
	if i.Breaker.MinRequests == 0 {
		i.Breaker.MinRequests = def.MinRequests
	}
	if i.Breaker.FailureRatio <= 0 || i.Breaker.FailureRatio > 1 {
		i.Breaker.FailureRatio = def.FailureRatio
	}
	return nil
}

func (a *AIConfig) normalize() {
	if a.Timeout <= 0 {
		a.Timeout = 30
	}
	if a.TaskType == "" {
		a.TaskType = "RETRIEVAL_DOCUMENT"
	}
	if a.CacheSize <= 0 {
		a.CacheSize = defaultEmbedCacheSize
	}
	if a.CacheTTLSeconds <= 0 {
		a.CacheTTLSeconds = 3600
	}
	if a.CacheMaxAgeDays <= 0 {
		a.CacheMaxAgeDays = 30
	}
	if a.EmbedBatchSize <= 0 {
		a.EmbedBatchSize = 50
	}
	if a.InterestSaveLimit <= 0 {
		a.InterestSaveLimit = signal.DefaultRecentSaveLimit
	}
}

// Embedders lists the primary provider followed by its fallbacks.
func (a AIConfig) Embedders() []AIProviderConfig {
	out := make([]AIProviderConfig, 0, 1+len(a.Fallbacks))
	if strings.TrimSpace(a.Provider) != "" {
		out = append(out, a.AIProviderConfig)
	}
	for _, item := range a.Fallbacks {
		if strings.TrimSpace(item.Provider) == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
