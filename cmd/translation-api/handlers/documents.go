// Package handlers provides HTTP handlers for the translation API.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lingodoc/translation-engine/internal/observability"
	"github.com/lingodoc/translation-engine/internal/storage"
)

// DocumentHandler handles uploads and result downloads.
type DocumentHandler struct {
	logger         *observability.Logger
	uploads        *storage.FileStore
	outputs        *storage.FileStore
	maxUploadBytes int64
}

// NewDocumentHandler creates a document handler.
func NewDocumentHandler(logger *observability.Logger, uploads, outputs *storage.FileStore, maxUploadBytes int64) *DocumentHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 64 << 20
	}
	return &DocumentHandler{
		logger:         logger,
		uploads:        uploads,
		outputs:        outputs,
		maxUploadBytes: maxUploadBytes,
	}
}

// UploadResponseDTO is the response for a stored upload.
type UploadResponseDTO struct {
	DocumentID string `json:"documentId"`
}

// Upload handles POST /api/v1/documents with a multipart "file" field.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required", err.Error())
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".pdf" {
		writeError(w, http.StatusBadRequest, "only PDF uploads are supported", "")
		return
	}

	ref, err := h.uploads.Save(file, ext)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store upload", err.Error())
		return
	}

	h.logger.Info().
		Str("document_id", ref).
		Str("filename", header.Filename).
		Int64("size", header.Size).
		Msg("Stored uploaded document")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(UploadResponseDTO{DocumentID: ref})
}

// Download handles GET /api/v1/downloads/{ref}, streaming the rendered
// translation.
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")

	f, err := h.outputs.Open(ref)
	if err != nil {
		writeError(w, http.StatusNotFound, "download not found", err.Error())
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="translation-`+ref+`.txt"`)
	io.Copy(w, f)
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]string{"error": message}
	if detail != "" {
		resp["detail"] = detail
	}
	json.NewEncoder(w).Encode(resp)
}
