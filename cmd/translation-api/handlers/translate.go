package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lingodoc/translation-engine/internal/cache"
	"github.com/lingodoc/translation-engine/internal/domain"
	"github.com/lingodoc/translation-engine/internal/executor"
	"github.com/lingodoc/translation-engine/internal/observability"
	"github.com/lingodoc/translation-engine/internal/pipeline"
	"github.com/lingodoc/translation-engine/internal/progress"
	"github.com/lingodoc/translation-engine/internal/storage"
)

// Extractor supplies the source document for a stored upload.
type Extractor interface {
	Extract(ctx context.Context, path string) (*domain.SourceDocument, error)
}

// TranslateHandler starts translation runs and streams their progress as
// Server-Sent Events.
type TranslateHandler struct {
	logger    *observability.Logger
	client    executor.TranslateClient
	renderer  pipeline.Renderer
	extractor Extractor
	uploads   *storage.FileStore
	jobs      *storage.JobRepository
	snapshots cache.Client

	baseCfg         pipeline.Config
	eventBufferSize int
	snapshotTTL     time.Duration
}

// NewTranslateHandler creates a translate handler.
func NewTranslateHandler(
	logger *observability.Logger,
	client executor.TranslateClient,
	renderer pipeline.Renderer,
	extractor Extractor,
	uploads *storage.FileStore,
	jobs *storage.JobRepository,
	snapshots cache.Client,
	baseCfg pipeline.Config,
	eventBufferSize int,
	snapshotTTL time.Duration,
) *TranslateHandler {
	return &TranslateHandler{
		logger:          logger,
		client:          client,
		renderer:        renderer,
		extractor:       extractor,
		uploads:         uploads,
		jobs:            jobs,
		snapshots:       snapshots,
		baseCfg:         baseCfg,
		eventBufferSize: eventBufferSize,
		snapshotTTL:     snapshotTTL,
	}
}

// TranslateRequestDTO is the request body for starting a run. Empty fields
// fall back to the configured defaults.
type TranslateRequestDTO struct {
	SourceLang string `json:"sourceLang,omitempty"`
	TargetLang string `json:"targetLang,omitempty"`
	Glossary   string `json:"glossary,omitempty"`
}

// jobSnapshot is the cache payload pollers read when their event stream
// drops.
type jobSnapshot struct {
	JobID     string       `json:"jobId"`
	Status    string       `json:"status"`
	LastEvent domain.Event `json:"lastEvent"`
}

// Translate handles POST /api/v1/documents/{documentId}/translate. The
// response is an SSE stream of progress events ending with completed or
// error.
func (h *TranslateHandler) Translate(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentId")

	path, err := h.uploads.Path(documentID)
	if err != nil {
		writeError(w, http.StatusNotFound, "document not found", err.Error())
		return
	}

	var reqDTO TranslateRequestDTO
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported", "")
		return
	}

	doc, err := h.extractor.Extract(r.Context(), path)
	if err != nil {
		status := http.StatusInternalServerError
		switch domain.TypeOf(err) {
		case domain.ErrorTypeNotFound:
			status = http.StatusNotFound
		case domain.ErrorTypeUnreadable, domain.ErrorTypeInput:
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, "extract document", err.Error())
		return
	}

	jobID := uuid.New()
	logger := h.logger.WithJob(jobID.String())

	job := &storage.Job{ID: jobID, DocumentRef: documentID, Status: storage.JobStatusRunning}
	if err := h.jobs.Create(r.Context(), job); err != nil {
		writeError(w, http.StatusInternalServerError, "create job", err.Error())
		return
	}

	cfg := h.baseCfg
	if reqDTO.SourceLang != "" {
		cfg.SourceLang = reqDTO.SourceLang
	}
	if reqDTO.TargetLang != "" {
		cfg.TargetLang = reqDTO.TargetLang
	}
	cfg.Glossary = reqDTO.Glossary

	emitter := progress.NewEmitter(h.logger, h.eventBufferSize)
	p := pipeline.New(h.client, h.renderer, h.logger, cfg)

	// The run must not die with the subscriber: it keeps going on the
	// request's base values even if the client disconnects, and the final
	// state lands in the job store either way.
	runCtx := context.WithoutCancel(r.Context())
	go func() {
		defer emitter.Close()

		result, err := p.Run(runCtx, doc, emitter)
		if err != nil {
			job.Status = storage.JobStatusFailed
			job.Error = err.Error()
		} else {
			job.Status = storage.JobStatusSucceeded
			job.Partial = result.Partial
			job.DownloadRef = result.DownloadRef
			job.SuccessfulUnits = result.SuccessfulUnits
			job.TotalUnits = result.TotalUnits
		}

		if err := h.jobs.Update(runCtx, job); err != nil {
			logger.Error().Err(err).Msg("Failed to persist job outcome")
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Job-ID", jobID.String())
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	enc := json.NewEncoder(w)
	clientGone := r.Context().Done()

	for event := range emitter.Events() {
		h.storeSnapshot(runCtx, jobID, event)

		select {
		case <-clientGone:
			logger.Warn().Msg("Subscriber disconnected, run continues detached")
			h.drain(runCtx, jobID, emitter)
			return
		default:
		}

		if _, err := w.Write([]byte("event: " + string(event.Type) + "\ndata: ")); err != nil {
			h.drain(runCtx, jobID, emitter)
			return
		}
		if err := enc.Encode(event); err != nil {
			h.drain(runCtx, jobID, emitter)
			return
		}
		w.Write([]byte("\n"))
		flusher.Flush()
	}
}

// drain keeps consuming events after the subscriber is gone so the emitter
// buffer never stalls the run, and snapshots stay current for pollers.
func (h *TranslateHandler) drain(ctx context.Context, jobID uuid.UUID, emitter *progress.Emitter) {
	for event := range emitter.Events() {
		h.storeSnapshot(ctx, jobID, event)
	}
}

func (h *TranslateHandler) storeSnapshot(ctx context.Context, jobID uuid.UUID, event domain.Event) {
	if event.Type == domain.EventHeartbeat {
		return
	}

	status := string(storage.JobStatusRunning)
	switch event.Type {
	case domain.EventCompleted:
		status = string(storage.JobStatusSucceeded)
	case domain.EventError:
		status = string(storage.JobStatusFailed)
	}

	payload, err := json.Marshal(jobSnapshot{
		JobID:     jobID.String(),
		Status:    status,
		LastEvent: event,
	})
	if err != nil {
		return
	}

	if err := h.snapshots.Set(ctx, "job:"+jobID.String(), payload, h.snapshotTTL); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to cache job snapshot")
	}
}
