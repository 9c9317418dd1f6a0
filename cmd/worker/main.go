package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/seatrail/backend-cargo/internal/cache"
	"github.com/seatrail/backend-cargo/internal/config"
	"github.com/seatrail/backend-cargo/internal/events"
	"github.com/seatrail/backend-cargo/internal/lock"
	"github.com/seatrail/backend-cargo/internal/obs"
	"github.com/seatrail/backend-cargo/internal/refresh"
	"github.com/seatrail/backend-cargo/internal/registry"
	"github.com/seatrail/backend-cargo/internal/resilience"
	"github.com/seatrail/backend-cargo/internal/shipsgo"
	"github.com/seatrail/backend-cargo/internal/tracking"
)

const metricsNamespace = "cargo"

func main() {
	cfg := config.MustLoad()
	logger := obs.NewLogger(logFormat(cfg), cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs.MustRegisterDomainMetrics(metricsNamespace, nil)
	resilience.MustRegisterMetrics(metricsNamespace, nil)

	pool := mustPool(ctx, cfg, logger)
	defer pool.Close()

	rdb := mustRedis(cfg, logger)
	defer func() { _ = rdb.Close() }()

	store := registry.NewStore(pool)
	redisCache := cache.New(rdb, cfg.TrackingRedisTTL, logger)
	tracker := buildTracker(cfg, redisCache, logger)
	bus := events.NewBus(store, logger, events.LogNotifier{Logger: logger})

	svc := &registry.Service{
		Store:    store,
		Tracker:  tracker,
		Bus:      bus,
		Stats:    redisCache,
		StatsTTL: cfg.StatsCacheTTL,
		Logger:   logger,
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid redis url for task queue")
	}

	asynqClient := asynq.NewClient(redisOpt)
	defer func() { _ = asynqClient.Close() }()
	enqueuer := &refresh.Enqueuer{Client: asynqClient, Logger: logger}

	sweeper := &refresh.Sweeper{
		Store:      store,
		Enqueuer:   enqueuer,
		Locker:     lock.New(rdb),
		Interval:   cfg.RefreshInterval,
		StaleAfter: cfg.RefreshStaleAfter,
		BatchSize:  cfg.RefreshBatchSize,
		Logger:     logger,
	}
	go sweeper.Run(ctx)

	handler := &refresh.Handler{Svc: svc, Logger: logger}
	mux := asynq.NewServeMux()
	mux.HandleFunc(refresh.TypeRefreshShipment, handler.HandleRefresh)

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 5,
		Queues:      map[string]int{refresh.QueueTracking: 1},
		Logger:      asynqLogger{logger},
	})

	go func() {
		logger.Info().Bool("mock_mode", cfg.MockMode()).Msg("worker started")
		if err := srv.Run(mux); err != nil {
			logger.Fatal().Err(err).Msg("worker failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	srv.Shutdown()
}

// asynqLogger adapts zerolog to the asynq logging interface.
type asynqLogger struct {
	l zerolog.Logger
}

func (a asynqLogger) Debug(args ...any) { a.l.Debug().Msgf("%v", args) }
func (a asynqLogger) Info(args ...any)  { a.l.Info().Msgf("%v", args) }
func (a asynqLogger) Warn(args ...any)  { a.l.Warn().Msgf("%v", args) }
func (a asynqLogger) Error(args ...any) { a.l.Error().Msgf("%v", args) }
func (a asynqLogger) Fatal(args ...any) { a.l.Fatal().Msgf("%v", args) }

func buildTracker(cfg config.Config, redisCache *cache.Cache, logger zerolog.Logger) *tracking.Client {
	client := &tracking.Client{
		Cache:   tracking.NewResultCache(cfg.TrackingCacheTTL, cfg.TrackingCacheCapacity),
		Limiter: tracking.NewProviderLimiter(cfg.VendorRateMax, cfg.VendorRateWindow),
		L2:      redisCache,
		Logger:  logger,
	}
	if cfg.MockMode() {
		logger.Warn().Msg("no vendor proxy configured, tracking runs in mock mode")
		return client
	}
	breaker := resilience.NewBreaker(cfg.Breaker).
		WithTarget(shipsgo.ProviderName).
		WithLogger(logger)
	client.Provider = shipsgo.New(cfg.ProxyURL, resilience.HTTPClient{
		Client:      &http.Client{Timeout: cfg.ProxyTimeout},
		Breaker:     breaker,
		BaseBackoff: cfg.ProxyBackoff,
		MaxAttempts: cfg.ProxyRetries,
		Jitter:      cfg.ProxyJitterPct,
		Target:      shipsgo.ProviderName,
		Logger:      &logger,
	}, logger)
	return client
}

func mustPool(ctx context.Context, cfg config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid database url")
	}
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns
	poolCfg.MaxConnLifetime = cfg.DBConnLifetime
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("database pool init failed")
	}
	return pool
}

func mustRedis(cfg config.Config, logger zerolog.Logger) *redis.Client {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid redis url")
	}
	return redis.NewClient(opt)
}

func logFormat(cfg config.Config) string {
	if cfg.IsProduction() {
		return "json"
	}
	return "console"
}
