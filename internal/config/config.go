// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, query-cache tuning,
// realtime feed policy, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-optics-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// CacheConfig tunes the query cache: freshness and retention windows, the
// retry schedule for failed fetches, and the defensive per-fetch timeout.
type CacheConfig struct {
	StaleAfter   time.Duration // CACHE_STALE_AFTER: freshness window
	GCAfter      time.Duration // CACHE_GC_AFTER: retention past staleness
	MaxRetries   int           // CACHE_MAX_RETRIES: attempts for retryable errors
	RetryBase    time.Duration // CACHE_RETRY_BASE: first backoff delay
	RetryCap     time.Duration // CACHE_RETRY_CAP: backoff ceiling
	FetchTimeout time.Duration // CACHE_FETCH_TIMEOUT: per-fetch deadline
}

// FeedConfig tunes the realtime change feed: the reconnect schedule for
// subscriptions and the event buffer per subscriber.
type FeedConfig struct {
	ReconnectMax  int           // FEED_RECONNECT_MAX: attempts before manual reconnect
	ReconnectBase time.Duration // FEED_RECONNECT_BASE: first backoff delay
	ReconnectCap  time.Duration // FEED_RECONNECT_CAP: backoff ceiling
	BufferSize    int           // FEED_BUFFER_SIZE: per-subscriber event buffer
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for API routes

	// App
	DBPath   string // SQLite path
	AdminPIN string // PIN required by destructive operations

	// Query cache / realtime feed
	Cache CacheConfig
	Feed  FeedConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath:   getenv("DB_PATH", "optics.db"),
		AdminPIN: getenv("ADMIN_PIN", ""),

		// Query cache
		Cache: CacheConfig{
			StaleAfter:   getdur("CACHE_STALE_AFTER", 30*time.Second),
			GCAfter:      getdur("CACHE_GC_AFTER", 5*time.Minute),
			MaxRetries:   getint("CACHE_MAX_RETRIES", 3),
			RetryBase:    getdur("CACHE_RETRY_BASE", 500*time.Millisecond),
			RetryCap:     getdur("CACHE_RETRY_CAP", 10*time.Second),
			FetchTimeout: getdur("CACHE_FETCH_TIMEOUT", 30*time.Second),
		},

		// Realtime feed
		Feed: FeedConfig{
			ReconnectMax:  getint("FEED_RECONNECT_MAX", 5),
			ReconnectBase: getdur("FEED_RECONNECT_BASE", time.Second),
			ReconnectCap:  getdur("FEED_RECONNECT_CAP", 30*time.Second),
			BufferSize:    getint("FEED_BUFFER_SIZE", 64),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-optics-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.Cache.StaleAfter <= 0 {
		return cfg, errors.New("CACHE_STALE_AFTER must be > 0")
	}
	if cfg.Cache.GCAfter < cfg.Cache.StaleAfter {
		return cfg, errors.New("CACHE_GC_AFTER must be >= CACHE_STALE_AFTER")
	}
	if cfg.Cache.MaxRetries < 0 {
		return cfg, errors.New("CACHE_MAX_RETRIES must be >= 0")
	}
	if cfg.Cache.RetryBase <= 0 || cfg.Cache.RetryCap < cfg.Cache.RetryBase {
		return cfg, errors.New("CACHE_RETRY_BASE must be > 0 and <= CACHE_RETRY_CAP")
	}
	if cfg.Cache.FetchTimeout <= 0 {
		return cfg, errors.New("CACHE_FETCH_TIMEOUT must be > 0")
	}
	if cfg.Feed.ReconnectMax < 0 {
		return cfg, errors.New("FEED_RECONNECT_MAX must be >= 0")
	}
	if cfg.Feed.ReconnectBase <= 0 || cfg.Feed.ReconnectCap < cfg.Feed.ReconnectBase {
		return cfg, errors.New("FEED_RECONNECT_BASE must be > 0 and <= FEED_RECONNECT_CAP")
	}
	if cfg.Feed.BufferSize < 1 {
		return cfg, errors.New("FEED_BUFFER_SIZE must be >= 1")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// splitCSV splits a comma-separated list, trimming whitespace and dropping
// empty entries.
func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeBasePath ensures the base path starts with "/" and has no
// trailing slash (except for the bare root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "/" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimRight(p, "/")
}
