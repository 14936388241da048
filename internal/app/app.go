package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/opportunities/internal/catalog"
	"github.com/MrSnakeDoc/opportunities/internal/classify"
	"github.com/MrSnakeDoc/opportunities/internal/config"
	"github.com/MrSnakeDoc/opportunities/internal/httpserver"
	"github.com/MrSnakeDoc/opportunities/internal/httpserver/deps"
	"github.com/MrSnakeDoc/opportunities/internal/index"
	"github.com/MrSnakeDoc/opportunities/internal/logger"
	"github.com/MrSnakeDoc/opportunities/internal/metrics"
	"github.com/MrSnakeDoc/opportunities/internal/redis"
	"github.com/MrSnakeDoc/opportunities/internal/saved"
	"github.com/MrSnakeDoc/opportunities/internal/scheduler"
	"github.com/MrSnakeDoc/opportunities/internal/search"
	"github.com/MrSnakeDoc/opportunities/internal/snapshot"
	"github.com/MrSnakeDoc/opportunities/internal/sources/notion"
	redisstore "github.com/MrSnakeDoc/opportunities/internal/store/redis"
	"github.com/MrSnakeDoc/opportunities/internal/taxonomy"
	"github.com/MrSnakeDoc/opportunities/internal/utils"
	"github.com/MrSnakeDoc/opportunities/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	redisClient *goredis.Client
	kv          *redisstore.Store
	catalog     *catalog.Service
	metrics     *metrics.Metrics
}

// New connects to Redis and wires the snapshot pipeline, search and saved
// items into one catalog service. Redis is required: it fails fast when
// the connector gives up.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	log.Info("connecting to redis", logger.String("addr", cfg.RedisAddr))
	redisClient, err := redis.New(ctx, redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		DB:             cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	kv := redisstore.NewStore(redisClient)

	tax, err := taxonomy.NewLoader(cfg.TaxonomyFile).Load()
	if err != nil {
		utils.CloseLogged(redisClient, log, "redis")
		return nil, fmt.Errorf("failed to load taxonomy: %w", err)
	}
	log.Info("taxonomy loaded",
		logger.Int("version", tax.Version()),
		logger.Int("groups", len(tax.Groups())))

	weights := search.DefaultWeights()
	if cfg.ScoreWeights != "" {
		if weights, err = search.ParseWeights(cfg.ScoreWeights); err != nil {
			utils.CloseLogged(redisClient, log, "redis")
			return nil, fmt.Errorf("invalid score weights: %w", err)
		}
	}

	source := notion.NewClient(notion.ClientOptions{
		BaseURL:    cfg.NotionBaseURL,
		Token:      cfg.NotionToken,
		DatabaseID: cfg.NotionDatabaseID,
		RPS:        cfg.SourceRPS,
		Lookahead:  cfg.SourceLookahead,
	})
	mapper := notion.NewMapper(notion.DefaultPropertyNames(), cfg.FeaturedTag)

	builder := snapshot.NewBuilder(source, mapper, snapshot.RetryPolicy{
		MaxPages:       cfg.SourceMaxPages,
		PageSize:       cfg.SourcePageSize,
		MaxAttempts:    cfg.SourceAttempts,
		Backoff:        cfg.SourceBackoff,
		MaxBackoff:     cfg.SourceMaxBackoff,
		RequestTimeout: cfg.SourceTimeout,
	}, classify.DefaultPolicy(), cfg.Timezone, log)

	key := cfg.SnapshotKey
	if key == "" {
		key = redisstore.SnapshotKey(snapshot.EnvelopeVersion)
	}

	m := metrics.New()
	svc := catalog.New(catalog.Options{
		Key:            key,
		TTL:            cfg.SnapshotTTL,
		RefreshTimeout: cfg.RefreshTimeout,
	}, catalog.Deps{
		Store:        snapshot.NewStore(kv, index.NewMemoryIndex(), log),
		Builder:      builder,
		Engine:       search.NewEngine(search.NewScorer(weights, tax), tax),
		Personalizer: search.NewPersonalizer(tax),
		Prefs:        kv,
		Saved:        saved.NewService(kv, source, mapper, cfg.DetailWorkers, log),
		Metrics:      m,
		Logger:       log,
	})

	return &App{
		cfg:         cfg,
		logger:      log,
		redisClient: redisClient,
		kv:          kv,
		catalog:     svc,
		metrics:     m,
	}, nil
}

// Catalog returns the wired catalog service.
func (a *App) Catalog() *catalog.Service { return a.catalog }

// Serve warms or builds the snapshot, starts the periodic reloader and the
// HTTP server, and blocks until ctx is cancelled or the server fails.
func (a *App) Serve(ctx context.Context) error {
	a.logger.Info("🚀 starting opportunities",
		logger.String("version", version.String()),
		logger.String("addr", a.cfg.ListenPort))

	reloadTrigger := make(chan struct{}, 1)
	reloader := scheduler.NewSnapshotReloader(a.catalog, a.logger, a.cfg.ReloadInterval, reloadTrigger)
	reloader.Start(ctx)
	a.logger.Info("snapshot reloader started",
		logger.Duration("interval", a.cfg.ReloadInterval))

	server := httpserver.New(a.cfg.ListenPort, deps.Deps{
		Logger:          a.logger,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		Catalog:         a.catalog,
		Metrics:         a.metrics,
		Redis:           a.kv,
		AllowedHosts:    a.cfg.AllowedHosts,
		AllowedCIDRS:    a.cfg.AllowedCIDRS,
		TrustProxy:      a.cfg.TrustProxy,
		RateLimitPerMin: a.cfg.RateLimitPerMin,
		RateLimitBurst:  a.cfg.RateLimitBurst,
		ReloadTrigger:   reloadTrigger,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ shutting down gracefully")
	case serveErr = <-errCh:
	}

	reloader.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil && serveErr == nil {
		serveErr = fmt.Errorf("failed to stop server: %w", err)
	}
	if serveErr == nil {
		a.logger.Info("✅ opportunities stopped cleanly")
	}
	return serveErr
}

// Close releases the Redis connection pool.
func (a *App) Close() {
	if a.redisClient != nil {
		utils.CloseLogged(a.redisClient, a.logger, "redis")
	}
}
