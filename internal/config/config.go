package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/seatrail/backend-cargo/internal/resilience"
)

// Config holds all runtime settings. Values come from the environment,
// optionally seeded from a .env file during local development.
type Config struct {
	AppEnv string
	Port   int

	DatabaseURL     string
	DBMaxConns      int32
	DBMinConns      int32
	DBConnLifetime  time.Duration
	MigrateOnStart  bool

	RedisURL string

	// ProxyURL is the base URL of the vendor proxy. Empty means the
	// tracking client runs in permanent mock mode.
	ProxyURL       string
	ProxyTimeout   time.Duration
	ProxyRetries   int
	ProxyBackoff   time.Duration
	ProxyJitterPct float64

	Breaker resilience.BreakerConfig

	TrackingCacheTTL      time.Duration
	TrackingCacheCapacity int
	TrackingRedisTTL      time.Duration

	VendorRateMax    int
	VendorRateWindow time.Duration

	APIRateLimit  int
	APIRateWindow time.Duration
	BodyLimit     int64

	WebhookReplayTTL time.Duration
	IdempotencyTTL   time.Duration
	StatsCacheTTL    time.Duration

	RefreshInterval   time.Duration
	RefreshStaleAfter time.Duration
	RefreshBatchSize  int

	CORSAllowedOrigins []string

	LogLevel string

	TracingEnabled  bool
	TracingEndpoint string
	TracingSampling float64

	MetricsBucketsMs string
}

// MustLoad reads configuration from the environment and panics on invalid
// required values. A missing .env file is not an error.
func MustLoad() Config {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		panic(fmt.Sprintf("config: load env: %v", err))
	}

	cfg := Config{
		AppEnv: strDefault(k, "app_env", "development"),
		Port:   intDefault(k, "port", 8080),

		DatabaseURL:    k.String("database_url"),
		DBMaxConns:     int32(intDefault(k, "db_max_conns", 10)),
		DBMinConns:     int32(intDefault(k, "db_min_conns", 2)),
		DBConnLifetime: durDefault(k, "db_conn_lifetime", 30*time.Minute),
		MigrateOnStart: boolDefault(k, "migrate_on_start", true),

		RedisURL: strDefault(k, "redis_url", "redis://localhost:6379/0"),

		ProxyURL:       strings.TrimSpace(k.String("proxy_url")),
		ProxyTimeout:   durDefault(k, "proxy_timeout", 10*time.Second),
		ProxyRetries:   intDefault(k, "proxy_retries", 3),
		ProxyBackoff:   durDefault(k, "proxy_backoff", 200*time.Millisecond),
		ProxyJitterPct: floatDefault(k, "proxy_jitter_pct", 0.2),

		Breaker: resilience.BreakerConfig{
			MinRequests:  intDefault(k, "breaker_min_requests", 5),
			FailureRatio: floatDefault(k, "breaker_failure_ratio", 0.6),
			OpenFor:      durDefault(k, "breaker_open_for", 30*time.Second),
			Probes:       intDefault(k, "breaker_probes", 1),
		},

		TrackingCacheTTL:      durDefault(k, "tracking_cache_ttl", 5*time.Minute),
		TrackingCacheCapacity: intDefault(k, "tracking_cache_capacity", 4096),
		TrackingRedisTTL:      durDefault(k, "tracking_redis_ttl", 15*time.Minute),

		VendorRateMax:    intDefault(k, "vendor_rate_max", 10),
		VendorRateWindow: durDefault(k, "vendor_rate_window", time.Minute),

		APIRateLimit:  intDefault(k, "api_rate_limit", 120),
		APIRateWindow: durDefault(k, "api_rate_window", time.Minute),
		BodyLimit:     int64(intDefault(k, "body_limit_bytes", 1<<20)),

		WebhookReplayTTL: durDefault(k, "webhook_replay_ttl", 24*time.Hour),
		IdempotencyTTL:   durDefault(k, "idempotency_ttl", 24*time.Hour),
		StatsCacheTTL:    durDefault(k, "stats_cache_ttl", time.Minute),

		RefreshInterval:   durDefault(k, "refresh_interval", 15*time.Minute),
		RefreshStaleAfter: durDefault(k, "refresh_stale_after", time.Hour),
		RefreshBatchSize:  intDefault(k, "refresh_batch_size", 50),

		CORSAllowedOrigins: splitCSV(strDefault(k, "cors_allowed_origins", "*")),

		LogLevel: strDefault(k, "log_level", "info"),

		TracingEnabled:  boolDefault(k, "tracing_enabled", false),
		TracingEndpoint: k.String("tracing_endpoint"),
		TracingSampling: floatDefault(k, "tracing_sampling", 1.0),

		MetricsBucketsMs: strDefault(k, "metrics_buckets_ms", "5,10,25,50,100,250,500,1000,2500,5000"),
	}

	if cfg.AppEnv != "test" && strings.TrimSpace(cfg.DatabaseURL) == "" {
		panic("config: DATABASE_URL is required")
	}
	return cfg
}

// LoadForTests returns a config with safe defaults and no required fields.
func LoadForTests() Config {
	return Config{
		AppEnv:                "test",
		Port:                  0,
		RedisURL:              "redis://localhost:6379/0",
		ProxyTimeout:          time.Second,
		ProxyRetries:          1,
		ProxyBackoff:          time.Millisecond,
		Breaker: resilience.BreakerConfig{
			MinRequests:  5,
			FailureRatio: 0.6,
			OpenFor:      time.Second,
			Probes:       1,
		},
		TrackingCacheTTL:      5 * time.Minute,
		TrackingCacheCapacity: 64,
		TrackingRedisTTL:      time.Minute,
		VendorRateMax:         10,
		VendorRateWindow:      time.Minute,
		APIRateLimit:          1000,
		APIRateWindow:         time.Minute,
		BodyLimit:             1 << 20,
		WebhookReplayTTL:      time.Minute,
		IdempotencyTTL:        time.Minute,
		StatsCacheTTL:         time.Second,
		RefreshInterval:       time.Minute,
		RefreshStaleAfter:     time.Hour,
		RefreshBatchSize:      10,
		CORSAllowedOrigins:    []string{"*"},
		LogLevel:              "debug",
		MetricsBucketsMs:      "5,50,500",
	}
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// MockMode reports whether vendor calls are disabled entirely.
func (c Config) MockMode() bool {
	return c.ProxyURL == ""
}

func strDefault(k *koanf.Koanf, key, def string) string {
	if v := strings.TrimSpace(k.String(key)); v != "" {
		return v
	}
	return def
}

func intDefault(k *koanf.Koanf, key string, def int) int {
	if !k.Exists(key) {
		return def
	}
	if v := k.Int(key); v != 0 {
		return v
	}
	return def
}

func floatDefault(k *koanf.Koanf, key string, def float64) float64 {
	if !k.Exists(key) {
		return def
	}
	if v := k.Float64(key); v != 0 {
		return v
	}
	return def
}

func boolDefault(k *koanf.Koanf, key string, def bool) bool {
	if !k.Exists(key) {
		return def
	}
	return k.Bool(key)
}

func durDefault(k *koanf.Koanf, key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(k.String(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
