// Command server runs the optics back office HTTP API.
//
// Startup order: configuration, logging, SQLite + migrations, the change-feed
// bus with its GORM write hooks, the query cache with its GC loop, the
// websocket hub and reconciler, then the Gin router. Shutdown drains the HTTP
// server first so in-flight requests finish before the feed and cache stop.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/lensworks/go-optics-backend/internal/config"
	"github.com/lensworks/go-optics-backend/internal/feed"
	httpapi "github.com/lensworks/go-optics-backend/internal/http"
	"github.com/lensworks/go-optics-backend/internal/http/handlers"
	"github.com/lensworks/go-optics-backend/internal/observability"
	"github.com/lensworks/go-optics-backend/internal/querycache"
	"github.com/lensworks/go-optics-backend/internal/repo"
	"github.com/lensworks/go-optics-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}
	if cfg.OTEL.Enabled {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			log.Fatal().Err(err).Msg("gorm tracing plugin failed")
		}
	}

	// Change feed: GORM write hooks publish row-level events on the bus.
	bus := feed.NewBus(cfg.Feed.BufferSize, log.Logger)
	if err := feed.RegisterCallbacks(db, bus); err != nil {
		log.Fatal().Err(err).Msg("feed hooks registration failed")
	}

	cache := querycache.New(querycache.Options{
		StaleAfter:   cfg.Cache.StaleAfter,
		GCAfter:      cfg.Cache.GCAfter,
		MaxRetries:   cfg.Cache.MaxRetries,
		RetryBase:    cfg.Cache.RetryBase,
		RetryCap:     cfg.Cache.RetryCap,
		FetchTimeout: cfg.Cache.FetchTimeout,
		Logger:       log.Logger,
	})
	go cache.Run(ctx, time.Minute)

	// Reconciler: bus events invalidate cache families, then fan out to
	// websocket clients so they refetch through the fresh cache.
	hub := handlers.NewStreamHub(log.Logger)
	rec := feed.NewReconciler(bus, cache, hub, feed.ReconnectPolicy{
		Max:  cfg.Feed.ReconnectMax,
		Base: cfg.Feed.ReconnectBase,
		Cap:  cfg.Feed.ReconnectCap,
	}, log.Logger)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, cache, hub, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	rec.Close()
	hub.Close()
	bus.Close()

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown failed")
	}
}
