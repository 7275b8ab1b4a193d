// Command server runs the contract issuance HTTP API.
//
// Startup order: load env and config, configure logging, open the database
// and run migrations, connect the object store and conversion client, set up
// tracing, then serve HTTP with graceful shutdown on SIGINT/SIGTERM.
//
// @title        Contract Issuance API
// @version      1.0
// @description  Template-driven lease contract rendering and idempotent issuance.
// @BasePath     /api/v1
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

	"github.com/arriendofacil/go-contract-backend/internal/config"
	"github.com/arriendofacil/go-contract-backend/internal/convert"
	httpapi "github.com/arriendofacil/go-contract-backend/internal/http"
	"github.com/arriendofacil/go-contract-backend/internal/observability"
	"github.com/arriendofacil/go-contract-backend/internal/repo"
	"github.com/arriendofacil/go-contract-backend/internal/storage"
	"github.com/arriendofacil/go-contract-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	gin.SetMode(cfg.GinMode)

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	blobs, err := storage.NewMinioStore(storage.Config{
		Endpoint:  cfg.Minio.Endpoint,
		AccessKey: cfg.Minio.AccessKey,
		SecretKey: cfg.Minio.SecretKey,
		Bucket:    cfg.Minio.Bucket,
		UseSSL:    cfg.Minio.UseSSL,
		URLExpiry: cfg.Minio.URLExpiry,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect object store")
	}
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := blobs.EnsureBucket(ctx); err != nil {
			cancel()
			log.Fatal().Err(err).Str("bucket", cfg.Minio.Bucket).Msg("ensure bucket")
		}
		cancel()
	}

	converter := convert.New(cfg.ConvertURL, cfg.ConvertTimeout)

	shutdownOTel, err := observability.SetupOTel(context.Background(), cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("setup tracing")
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, db, blobs, converter, cfg)

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
		log.Info().Str("port", cfg.Port).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Block until we receive a termination signal, then drain.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := shutdownOTel(ctx); err != nil {
		log.Error().Err(err).Msg("tracer shutdown failed")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("bye")
}
