// Package main provides the translation API server entrypoint.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lingodoc/translation-engine/internal/cache"
	"github.com/lingodoc/translation-engine/internal/config"
	"github.com/lingodoc/translation-engine/internal/llm"
	"github.com/lingodoc/translation-engine/internal/observability"
	"github.com/lingodoc/translation-engine/internal/storage"
)

func main() {
	_ = godotenv.Load() // ignore error if .env doesn't exist

	cfgPath := os.Getenv("CONFIG_PATH")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
	})

	if cfg.Translator.APIKey == "" {
		logger.Fatal().Msg("OPENROUTER_API_KEY environment variable not set")
	}

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("model", cfg.Translator.Model).
		Str("cache", cfg.Cache.Driver).
		Msg("Starting translation API")

	uploads, err := storage.NewFileStore(cfg.Storage.UploadDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create upload store")
	}
	outputs, err := storage.NewFileStore(cfg.Storage.OutputDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create output store")
	}

	db, err := sql.Open("sqlite3", cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open job database")
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	defer db.Close()

	if err := storage.Migrate(context.Background(), db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate job database")
	}

	snapshots, err := newCache(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create snapshot cache")
	}
	defer snapshots.Close()

	client := llm.NewClient(llm.Options{
		APIKey:         cfg.Translator.APIKey,
		BaseURL:        cfg.Translator.BaseURL,
		Model:          cfg.Translator.Model,
		RequestTimeout: cfg.Translator.RequestTimeout,
	})

	router := NewRouter(logger, cfg, routerDeps{
		client:    client,
		uploads:   uploads,
		outputs:   outputs,
		jobs:      storage.NewJobRepository(db),
		snapshots: snapshots,
	})

	janitorCtx, stopJanitors := context.WithCancel(context.Background())
	defer stopJanitors()
	go uploads.RunJanitor(janitorCtx, cfg.Storage.SweepInterval, cfg.Storage.Retention)
	go outputs.RunJanitor(janitorCtx, cfg.Storage.SweepInterval, cfg.Storage.Retention)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatal().Err(err).Msg("Server failed")
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("Graceful shutdown failed, forcing close")
			srv.Close()
		}
	}
}

func newCache(cfg *config.Config) (cache.Client, error) {
	if cfg.Cache.Driver == "redis" {
		return cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
	}
	return cache.NewMemoryClient(), nil
}
