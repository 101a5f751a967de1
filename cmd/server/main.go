// Command server runs the wedding invitation backend.
//
//	@title						Wedding Invitation API
//	@version					1.0
//	@description				RSVPs, guestbook, guest photos and Q&A for a wedding invitation page, with a live change feed.
//	@BasePath					/api/v1
//	@schemes					http https
//	@securityDefinitions.basic	BasicAuth
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
	"github.com/spf13/afero"

	"github.com/tbourn/go-wedding-backend/internal/config"
	httpapi "github.com/tbourn/go-wedding-backend/internal/http"
	"github.com/tbourn/go-wedding-backend/internal/media"
	"github.com/tbourn/go-wedding-backend/internal/observability"
	"github.com/tbourn/go-wedding-backend/internal/realtime"
	"github.com/tbourn/go-wedding-backend/internal/repo"
	"github.com/tbourn/go-wedding-backend/internal/services"
	"github.com/tbourn/go-wedding-backend/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const janitorInterval = 10 * time.Minute

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	logger := sysutil.SetupLogger(os.Stdout, cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	appVersion := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, appVersion)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup failed")
	}

	if err := sysutil.EnsureParentDir(cfg.DBPath); err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("db dir")
	}
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open db")
	}
	if err := repo.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}
	if sysutil.IsTruthy(os.Getenv("MIGRATE_ONLY")) {
		logger.Info().Str("path", cfg.DBPath).Msg("migrations applied")
		return
	}

	feed, err := newBroker(cfg.Feed)
	if err != nil {
		logger.Fatal().Err(err).Msg("change feed")
	}

	if err := sysutil.EnsureDir(cfg.Media.Dir); err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.Media.Dir).Msg("media dir")
	}
	blobs := media.NewFSBlobStore(afero.NewBasePathFs(afero.NewOsFs(), cfg.Media.Dir), cfg.Media.BaseURL)

	go services.RunIdempotencyJanitor(ctx, db, janitorInterval)

	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{DB: db, Feed: feed, Blobs: blobs}, cfg)

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
		logger.Info().
			Str("addr", srv.Addr).
			Str("version", appVersion).
			Str("db", cfg.DBPath).
			Bool("redis_feed", cfg.Feed.RedisURL != "").
			Bool("admin", cfg.AdminPassword != "").
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Closing the feed first ends open SSE streams so Shutdown can drain.
	if err := feed.Close(); err != nil {
		logger.Warn().Err(err).Msg("feed close")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("otel shutdown")
	}
}

func newBroker(cfg config.FeedConfig) (realtime.Broker, error) {
	if cfg.RedisURL == "" {
		return realtime.NewMemoryBroker(cfg.Buffer), nil
	}
	b, err := realtime.NewRedisBroker(cfg.RedisURL, cfg.Channel, cfg.Buffer)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.Ping(ctx); err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}
