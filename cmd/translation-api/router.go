// Package main provides the translation API server.
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/lingodoc/translation-engine/cmd/translation-api/handlers"
	"github.com/lingodoc/translation-engine/cmd/translation-api/middleware"
	"github.com/lingodoc/translation-engine/internal/cache"
	"github.com/lingodoc/translation-engine/internal/config"
	"github.com/lingodoc/translation-engine/internal/executor"
	"github.com/lingodoc/translation-engine/internal/extract"
	"github.com/lingodoc/translation-engine/internal/observability"
	"github.com/lingodoc/translation-engine/internal/pipeline"
	"github.com/lingodoc/translation-engine/internal/render"
	"github.com/lingodoc/translation-engine/internal/storage"
)

// routerDeps bundles the collaborators the router wires into handlers.
type routerDeps struct {
	client    executor.TranslateClient
	uploads   *storage.FileStore
	outputs   *storage.FileStore
	jobs      *storage.JobRepository
	snapshots cache.Client
}

// NewRouter creates the API router with all routes configured.
func NewRouter(logger *observability.Logger, cfg *config.Config, deps routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"translation-engine"}`))
	})

	renderer := render.NewTextRenderer(deps.outputs, logger)
	extractor := extract.NewPDFExtractor(logger)

	baseCfg := pipeline.Config{
		UnitSizePages:     cfg.Pipeline.UnitSizePages,
		MaxChunkChars:     cfg.Pipeline.MaxChunkChars,
		ConcurrencyLimit:  cfg.Pipeline.ConcurrencyLimit,
		PerTaskTimeout:    cfg.Pipeline.PerTaskTimeout,
		MaxAttempts:       cfg.Pipeline.MaxAttempts,
		RunDeadline:       cfg.Pipeline.RunDeadline,
		RetryBaseDelay:    cfg.Pipeline.RetryBaseDelay,
		HeartbeatInterval: cfg.Pipeline.HeartbeatInterval,
		SourceLang:        cfg.Translator.SourceLang,
		TargetLang:        cfg.Translator.TargetLang,
	}

	documentHandler := handlers.NewDocumentHandler(logger, deps.uploads, deps.outputs, cfg.Server.MaxUploadBytes)
	translateHandler := handlers.NewTranslateHandler(
		logger, deps.client, renderer, extractor, deps.uploads, deps.jobs,
		deps.snapshots, baseCfg, cfg.Pipeline.EventBufferSize, cfg.Cache.TTL,
	)
	jobHandler := handlers.NewJobHandler(logger, deps.jobs, deps.snapshots)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(middleware.AuthConfig{
			Enabled: cfg.Auth.Enabled,
			APIKey:  cfg.Auth.APIKey,
		}))

		r.Post("/documents", documentHandler.Upload)
		r.Post("/documents/{documentId}/translate", translateHandler.Translate)
		r.Get("/jobs/{jobId}", jobHandler.Get)
		r.Get("/downloads/{ref}", documentHandler.Download)
	})

	return r
}
