package config

import (
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every variable the loader reads so defaults apply.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT", "READ_TIMEOUT", "READ_HEADER_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT",
		"MAX_HEADER_BYTES", "GIN_MODE", "LOG_LEVEL", "LOG_PRETTY", "SWAGGER_ENABLED",
		"API_BASE_PATH", "DB_PATH", "ADMIN_PIN",
		"CACHE_STALE_AFTER", "CACHE_GC_AFTER", "CACHE_MAX_RETRIES", "CACHE_RETRY_BASE",
		"CACHE_RETRY_CAP", "CACHE_FETCH_TIMEOUT",
		"FEED_RECONNECT_MAX", "FEED_RECONNECT_BASE", "FEED_RECONNECT_CAP", "FEED_BUFFER_SIZE",
		"RATE_RPS", "RATE_BURST", "CORS_ALLOWED_ORIGINS", "ENABLE_HSTS", "HSTS_MAX_AGE",
		"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE",
		"OTEL_SERVICE_NAME", "OTEL_TRACES_SAMPLER_ARG",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q; want 8080", cfg.Port)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Errorf("APIBasePath = %q; want /api/v1", cfg.APIBasePath)
	}
	if cfg.Cache.StaleAfter != 30*time.Second {
		t.Errorf("StaleAfter = %v; want 30s", cfg.Cache.StaleAfter)
	}
	if cfg.Cache.GCAfter != 5*time.Minute {
		t.Errorf("GCAfter = %v; want 5m", cfg.Cache.GCAfter)
	}
	if cfg.Feed.ReconnectMax != 5 {
		t.Errorf("ReconnectMax = %d; want 5", cfg.Feed.ReconnectMax)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q; want release", cfg.GinMode)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_STALE_AFTER", "10s")
	t.Setenv("CACHE_GC_AFTER", "1m")
	t.Setenv("ADMIN_PIN", "4321")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q; want 9090", cfg.Port)
	}
	if cfg.Cache.StaleAfter != 10*time.Second {
		t.Errorf("StaleAfter = %v; want 10s", cfg.Cache.StaleAfter)
	}
	if cfg.AdminPIN != "4321" {
		t.Errorf("AdminPIN = %q; want 4321", cfg.AdminPIN)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_GCWindowMustCoverStaleness(t *testing.T) {
	clearEnv(t)
	t.Setenv("CACHE_STALE_AFTER", "2m")
	t.Setenv("CACHE_GC_AFTER", "1m")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "CACHE_GC_AFTER") {
		t.Fatalf("expected GC window validation error, got %v", err)
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "verbose")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid LOG_LEVEL")
	}
}

func TestLoad_WarningNormalizesToWarn(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "warning")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q; want warn", cfg.LogLevel)
	}
}

func TestNormalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":         "/",
		"/":        "/",
		"api/v2":   "/api/v2",
		"/api/v2/": "/api/v2",
		" /x ":     "/x",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Errorf("normalizeBasePath(%q) = %q; want %q", in, got, want)
		}
	}
}
