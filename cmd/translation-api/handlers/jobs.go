package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lingodoc/translation-engine/internal/cache"
	"github.com/lingodoc/translation-engine/internal/observability"
	"github.com/lingodoc/translation-engine/internal/storage"
)

// JobHandler serves job status lookups, backed by the snapshot cache with
// the job store as fallback.
type JobHandler struct {
	logger    *observability.Logger
	jobs      *storage.JobRepository
	snapshots cache.Client
}

// NewJobHandler creates a job handler.
func NewJobHandler(logger *observability.Logger, jobs *storage.JobRepository, snapshots cache.Client) *JobHandler {
	return &JobHandler{logger: logger, jobs: jobs, snapshots: snapshots}
}

// JobDTO is the job status response.
type JobDTO struct {
	ID              string          `json:"id"`
	Status          string          `json:"status"`
	Partial         bool            `json:"partial"`
	DownloadRef     string          `json:"downloadRef,omitempty"`
	SuccessfulUnits int             `json:"successfulUnits"`
	TotalUnits      int             `json:"totalUnits"`
	Error           string          `json:"error,omitempty"`
	LastEvent       json.RawMessage `json:"lastEvent,omitempty"`
	UpdatedAt       string          `json:"updatedAt,omitempty"`
}

// Get handles GET /api/v1/jobs/{jobId}.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "jobId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid jobId", err.Error())
		return
	}

	dto := JobDTO{ID: jobID.String()}

	job, err := h.jobs.GetByID(r.Context(), jobID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "job not found", "")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "load job", err.Error())
		return
	}

	dto.Status = string(job.Status)
	dto.Partial = job.Partial
	dto.DownloadRef = job.DownloadRef
	dto.SuccessfulUnits = job.SuccessfulUnits
	dto.TotalUnits = job.TotalUnits
	dto.Error = job.Error
	dto.UpdatedAt = job.UpdatedAt.Format(time.RFC3339)

	// A running job's freshest state lives in the snapshot cache.
	if snap, err := h.snapshots.Get(r.Context(), "job:"+jobID.String()); err == nil {
		var parsed struct {
			Status    string          `json:"status"`
			LastEvent json.RawMessage `json:"lastEvent"`
		}
		if json.Unmarshal(snap, &parsed) == nil {
			if job.Status == storage.JobStatusRunning && parsed.Status != "" {
				dto.Status = parsed.Status
			}
			dto.LastEvent = parsed.LastEvent
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto)
}
