package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/seatrail/backend-cargo/internal/cache"
	"github.com/seatrail/backend-cargo/internal/common"
	"github.com/seatrail/backend-cargo/internal/config"
	"github.com/seatrail/backend-cargo/internal/db"
	"github.com/seatrail/backend-cargo/internal/events"
	"github.com/seatrail/backend-cargo/internal/health"
	"github.com/seatrail/backend-cargo/internal/obs"
	"github.com/seatrail/backend-cargo/internal/ratelimit"
	"github.com/seatrail/backend-cargo/internal/registry"
	"github.com/seatrail/backend-cargo/internal/resilience"
	"github.com/seatrail/backend-cargo/internal/security"
	"github.com/seatrail/backend-cargo/internal/shipsgo"
	"github.com/seatrail/backend-cargo/internal/tracking"
)

const metricsNamespace = "cargo"

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	cfg := config.MustLoad()
	logger := obs.NewLogger(logFormat(cfg), cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracerConfig{
			ServiceName: "backend-cargo-api",
			Version:     version,
			Environment: cfg.AppEnv,
			Endpoint:    cfg.TracingEndpoint,
			SampleRatio: cfg.TracingSampling,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("tracer init failed")
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}

	httpMetrics := obs.NewHTTPMetrics(metricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBucketsMs), nil)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)
	resilience.MustRegisterMetrics(metricsNamespace, nil)

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
	}

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
	handlers := registry.NewHandlers(svc, tracker, common.NewIdem(rdb, cfg.IdempotencyTTL), logger)
	webhook := &registry.WebhookHandler{
		Svc:    svc,
		Idem:   common.NewIdem(rdb, cfg.WebhookReplayTTL),
		Logger: logger,
	}
	healthz := health.Handlers{Pool: pool, RDB: rdb}
	limiter := ratelimit.NewSlidingRedis(rdb, cfg.APIRateLimit, cfg.APIRateWindow)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(security.Headers)
	r.Use(security.BodyLimit(cfg.BodyLimit))
	r.Use(obs.RoutePatternMiddleware)
	if cfg.TracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)

	r.Get("/healthz", healthz.Live)
	r.Get("/readyz", healthz.Ready)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	if !cfg.IsProduction() {
		r.Mount("/debug", chimw.Profiler())
	}

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(limiter, logger))
		handlers.Register(r)
		webhook.Register(r)
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Port).Bool("mock_mode", cfg.MockMode()).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

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
	httpClient := &http.Client{Timeout: cfg.ProxyTimeout}
	if cfg.TracingEnabled {
		httpClient.Transport = otelhttp.NewTransport(http.DefaultTransport)
	}
	client.Provider = shipsgo.New(cfg.ProxyURL, resilience.HTTPClient{
		Client:      httpClient,
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
	if cfg.TracingEnabled {
		poolCfg.ConnConfig.Tracer = obs.PGXTracer{}
	}
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
	rdb := redis.NewClient(opt)
	if cfg.TracingEnabled {
		if err := redisotel.InstrumentTracing(rdb); err != nil {
			logger.Warn().Err(err).Msg("redis tracing instrumentation failed")
		}
	}
	return rdb
}

func logFormat(cfg config.Config) string {
	if cfg.IsProduction() {
		return "json"
	}
	return "console"
}
