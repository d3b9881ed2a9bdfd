package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/mfeed/internal/ai"
	"github.com/xxxsen/mfeed/internal/cache"
	"github.com/xxxsen/mfeed/internal/candidate"
	"github.com/xxxsen/mfeed/internal/config"
	"github.com/xxxsen/mfeed/internal/db"
	"github.com/xxxsen/mfeed/internal/embedcache"
	"github.com/xxxsen/mfeed/internal/handler"
	"github.com/xxxsen/mfeed/internal/job"
	"github.com/xxxsen/mfeed/internal/metrics"
	"github.com/xxxsen/mfeed/internal/middleware"
	"github.com/xxxsen/mfeed/internal/repo"
	"github.com/xxxsen/mfeed/internal/schedule"
	"github.com/xxxsen/mfeed/internal/service"
	"github.com/xxxsen/mfeed/internal/vecmath"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "mfeed",
		Short: "mfeed discovery feed server",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run mfeed server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(configPath)
			if err != nil {
				return err
			}
			defer app.Close()
			return runServer(app)
		},
	}

	purgeCmd := &cobra.Command{
		Use:   "purge-seen",
		Short: "delete seen records past the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(configPath)
			if err != nil {
				return err
			}
			defer app.Close()
			return schedule.RunNow(context.Background(), job.NewSeenPurgeJob(app.seen), app.monitor)
		},
	}

	var rebuildWindow time.Duration
	rebuildCmd := &cobra.Command{
		Use:   "rebuild-interest [identity_id...]",
		Short: "rebuild interest vectors of the given or recently active identities",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(configPath)
			if err != nil {
				return err
			}
			defer app.Close()
			ctx := context.Background()
			if len(args) == 0 {
				return schedule.RunNow(ctx, job.NewInterestRebuildJob(app.interest, rebuildWindow, 0), app.monitor)
			}
			for _, id := range args {
				if err := app.interest.Rebuild(ctx, id); err != nil {
					return fmt.Errorf("rebuild %s: %w", id, err)
				}
			}
			return nil
		},
	}
	rebuildCmd.Flags().DurationVar(&rebuildWindow, "window", 24*time.Hour, "activity window when no identity is given")

	rootCmd.AddCommand(runCmd, purgeCmd, rebuildCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

type app struct {
	cfg       *config.Config
	db        *sql.DB
	monitor   *metrics.Monitor
	artifacts *cache.Artifacts
	feed      *service.FeedService
	seen      *service.SeenService
	interest  *service.InterestService
	embedding *service.EmbeddingService
	events    *service.EventService
	cacheRepo *repo.EmbeddingCacheRepo
	closers   []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func setup(configPath string) (*app, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	ctx := context.Background()
	logutil.GetLogger(ctx).Info("config loaded", zap.String("config", configPath))

	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	a := &app{cfg: cfg, db: conn, monitor: metrics.NewMonitor()}
	a.closers = append(a.closers, func() { _ = conn.Close() })
	if err := db.ApplyMigrations(conn); err != nil {
		a.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	store, err := newCacheStore(ctx, cfg.Cache, a)
	if err != nil {
		a.Close()
		return nil, err
	}
	ttl := cfg.Cache.TTLSeconds
	a.artifacts = cache.NewArtifacts(store, cache.TTLs{
		Interest: seconds(ttl.Interest),
		Seen:     seconds(ttl.Seen),
		Follow:   seconds(ttl.Follow),
		Block:    seconds(ttl.Block),
		Topics:   seconds(ttl.Topics),
		Ranking:  seconds(ttl.Ranking),
		Page:     seconds(ttl.Page),
	}, a.monitor)

	contentRepo := repo.NewContentRepo(conn)
	edgeRepo := repo.NewEdgeRepo(conn)
	profileRepo := repo.NewProfileRepo(conn)
	seenRepo := repo.NewSeenRepo(conn)
	saveRepo := repo.NewSaveRepo(conn)
	interestRepo := repo.NewInterestRepo(conn)
	a.cacheRepo = repo.NewEmbeddingCacheRepo(conn)

	embedder, err := newEmbedder(cfg.AI, a.cacheRepo)
	if err != nil {
		a.Close()
		return nil, err
	}

	var (
		source candidate.Source
		index  service.IndexWriter
	)
	switch cfg.Index.Type {
	case "memory":
		mem := candidate.NewMemoryIndex()
		n, err := service.LoadIndex(ctx, contentRepo, mem)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("load memory index: %w", err)
		}
		logutil.GetLogger(ctx).Info("memory index loaded", zap.Int("posts", n))
		source, index = mem, mem
	default:
		source = repo.NewVectorIndexRepo(conn)
	}
	source = candidate.WithTimeout(source, time.Duration(cfg.Index.TimeoutMs)*time.Millisecond)
	source = candidate.NewBreakerSource("candidate_index", source, cfg.Index.Breaker, a.monitor)

	rk := cfg.Ranking
	feedCfg := service.FeedConfig{
		Weights:            *rk.Weights,
		OverFetchFactor:    *rk.OverFetchFactor,
		DiversityThreshold: *rk.DiversityThreshold,
		DiversityWindow:    rk.DiversityWindow,
		TemporalDecayRate:  *rk.TemporalDecayRate,
		SeenRetentionDays:  rk.SeenRetentionDays,
		Engagement:         *rk.Engagement,
		RecentSaveLimit:    rk.RecentSaveLimit,
		LookupTimeout:      time.Duration(rk.LookupTimeoutMs) * time.Millisecond,
		MaxPageSize:        rk.MaxPageSize,
		SnapshotRanking:    rk.SnapshotRanking,
		MediaPublicURL:     cfg.Media.PublicURL,
	}
	a.feed = service.NewFeedService(feedCfg, service.FeedDeps{
		Interest: interestRepo,
		Content:  contentRepo,
		Edges:    edgeRepo,
		Profiles: profileRepo,
		Seen:     seenRepo,
		Saves:    saveRepo,
		Source:   source,
		Cache:    a.artifacts,
		Monitor:  a.monitor,
	})
	a.seen = service.NewSeenService(seenRepo, a.artifacts, rk.SeenRetentionDays)
	a.interest = service.NewInterestService(interestRepo, contentRepo, saveRepo, a.artifacts, cfg.AI.InterestSaveLimit)
	a.embedding = service.NewEmbeddingService(contentRepo, embedder, index, cfg.AI.TaskType)
	a.events = service.NewEventService(a.artifacts, a.monitor, contentRepo, a.embedding)
	return a, nil
}

func seconds(v int) time.Duration {
	return time.Duration(v) * time.Second
}

func newCacheStore(ctx context.Context, cfg config.CacheConfig, a *app) (cache.Store, error) {
	if cfg.Type == "redis" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("init redis cache: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		logutil.GetLogger(ctx).Info("redis cache enabled")
		return cache.NewRedisStore(client, "mfeed:"), nil
	}
	store, err := cache.NewLRUStore(cfg.Size)
	if err != nil {
		return nil, fmt.Errorf("init memory cache: %w", err)
	}
	return store, nil
}

// newEmbedder builds the fallback chain of configured providers behind the
// LRU and postgres embedding caches. No provider means no content embedding.
func newEmbedder(cfg config.AIConfig, store embedcache.Store) (ai.IEmbedder, error) {
	entries := make([]ai.EmbedderEntry, 0)
	for _, item := range cfg.Embedders() {
		provider, err := ai.NewEmbedProvider(item.Provider, ai.ProviderArgs{
			APIKey:    item.APIKey,
			BaseURL:   item.BaseURL,
			Dimension: vecmath.Dim,
			Timeout:   time.Duration(cfg.Timeout) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("init ai provider %s: %w", item.Provider, err)
		}
		name := item.Name
		if name == "" {
			name = item.Provider
		}
		entries = append(entries, ai.EmbedderEntry{Name: name, Embedder: ai.NewEmbedder(provider, item.Model)})
	}
	group := ai.NewGroupEmbedder(entries)
	if group == nil {
		logutil.GetLogger(context.Background()).Info("no ai provider configured, content embedding disabled")
		return nil, nil
	}
	embedder := ai.WithDimensionCheck(group)
	embedder = embedcache.WrapDB(embedder, store)
	embedder = embedcache.WrapLRU(embedder, cfg.CacheSize, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	return embedder, nil
}

func runServer(a *app) error {
	cfg := a.cfg
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("cache", cfg.Cache.Type),
		zap.String("index", cfg.Index.Type),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler(a.monitor)
	jobs := []struct {
		job  schedule.Job
		spec string
	}{
		{job.NewSeenPurgeJob(a.seen), cfg.Jobs.SeenPurge},
		{job.NewInterestRebuildJob(a.interest, 0, 0), cfg.Jobs.InterestRebuild},
		{job.NewContentEmbeddingJob(a.embedding, cfg.AI.EmbedBatchSize), cfg.Jobs.ContentEmbedding},
		{job.NewEmbeddingCacheCleanupJob(a.cacheRepo, cfg.AI.CacheMaxAgeDays), cfg.Jobs.EmbeddingCacheCleanup},
	}
	for _, item := range jobs {
		if err := scheduler.AddJob(item.job, item.spec); err != nil {
			return err
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	deps := handler.RouterDeps{
		Feed:            handler.NewFeedHandler(a.feed, a.seen),
		Events:          handler.NewEventHandler(a.events),
		Metrics:         a.monitor.Handler(),
		JWTSecret:       []byte(cfg.JWTSecret),
		RateLimit:       cfg.RateLimit.Limit,
		RateLimitWindow: seconds(cfg.RateLimit.WindowSeconds),
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORS),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
