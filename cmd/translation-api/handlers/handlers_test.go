package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingodoc/translation-engine/internal/cache"
	"github.com/lingodoc/translation-engine/internal/domain"
	"github.com/lingodoc/translation-engine/internal/llm"
	"github.com/lingodoc/translation-engine/internal/observability"
	"github.com/lingodoc/translation-engine/internal/pipeline"
	"github.com/lingodoc/translation-engine/internal/storage"
)

type stubExtractor struct {
	doc *domain.SourceDocument
	err error
}

func (s *stubExtractor) Extract(context.Context, string) (*domain.SourceDocument, error) {
	return s.doc, s.err
}

type stubTranslator struct {
	err error
}

func (s *stubTranslator) Translate(_ context.Context, req llm.TranslationRequest) (*llm.TranslationResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.TranslationResponse{Text: "T:" + req.Text}, nil
}

type stubRenderer struct{}

func (stubRenderer) Render(context.Context, []string) (string, error) {
	return "out-ref", nil
}

func newTestStore(t *testing.T) *storage.FileStore {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir(), observability.Nop())
	require.NoError(t, err)
	return store
}

func newTestJobs(t *testing.T) *storage.JobRepository {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)
	require.NoError(t, storage.Migrate(context.Background(), db))
	return storage.NewJobRepository(db)
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

// sseEventNames extracts the event names from an SSE response body, skipping
// heartbeats.
func sseEventNames(body string) []string {
	var names []string
	for _, line := range strings.Split(body, "\n") {
		if name, ok := strings.CutPrefix(line, "event: "); ok && name != string(domain.EventHeartbeat) {
			names = append(names, name)
		}
	}
	return names
}

func newDocumentMux(t *testing.T) (*chi.Mux, *storage.FileStore, *storage.FileStore) {
	t.Helper()
	uploads := newTestStore(t)
	outputs := newTestStore(t)
	h := NewDocumentHandler(observability.Nop(), uploads, outputs, 1<<20)

	r := chi.NewRouter()
	r.Post("/api/v1/documents", h.Upload)
	r.Get("/api/v1/downloads/{ref}", h.Download)
	return r, uploads, outputs
}

func TestUpload_StoresPDF(t *testing.T) {
	router, uploads, _ := newDocumentMux(t)

	body, contentType := multipartUpload(t, "report.pdf", "%PDF-1.4 test")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp UploadResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.DocumentID)

	_, err := uploads.Path(resp.DocumentID)
	assert.NoError(t, err)
}

func TestUpload_RejectsNonPDF(t *testing.T) {
	router, _, _ := newDocumentMux(t)

	body, contentType := multipartUpload(t, "notes.txt", "plain text")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_MissingFileField(t *testing.T) {
	router, _, _ := newDocumentMux(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", strings.NewReader("not multipart"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownload_ServesStoredFile(t *testing.T) {
	router, _, outputs := newDocumentMux(t)

	ref, err := outputs.SaveBytes([]byte("translated body\n"), ".txt")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/downloads/"+ref, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "translated body\n", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
}

func TestDownload_UnknownRef(t *testing.T) {
	router, _, _ := newDocumentMux(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/downloads/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownload_PatternRefCannotReachOtherFiles(t *testing.T) {
	router, _, outputs := newDocumentMux(t)

	ref, err := outputs.SaveBytes([]byte("someone else's translation"), ".txt")
	require.NoError(t, err)

	for _, bad := range []string{"*", "%2A", ref[:8], ref[:8] + "*"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/downloads/"+bad, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code, "ref %q", bad)
		assert.NotContains(t, rec.Body.String(), "someone else's translation", "ref %q", bad)
	}
}

func newTranslateMux(t *testing.T, extractor Extractor, translator *stubTranslator) (*chi.Mux, *storage.FileStore, *storage.JobRepository, cache.Client) {
	t.Helper()
	uploads := newTestStore(t)
	jobs := newTestJobs(t)
	snapshots := cache.NewMemoryClient()

	h := NewTranslateHandler(
		observability.Nop(),
		translator,
		stubRenderer{},
		extractor,
		uploads,
		jobs,
		snapshots,
		pipeline.Config{UnitSizePages: 1, ConcurrencyLimit: 2, RetryBaseDelay: time.Millisecond},
		64,
		time.Minute,
	)

	r := chi.NewRouter()
	r.Post("/api/v1/documents/{documentId}/translate", h.Translate)
	return r, uploads, jobs, snapshots
}

func pagedDoc(n int) *domain.SourceDocument {
	pages := make([]string, n)
	for i := range pages {
		pages[i] = "page text"
	}
	return &domain.SourceDocument{Pages: pages, PageCount: n}
}

func TestTranslate_StreamsEventsAndCompletes(t *testing.T) {
	router, uploads, jobs, snapshots := newTranslateMux(t, &stubExtractor{doc: pagedDoc(3)}, &stubTranslator{})

	docRef, err := uploads.SaveBytes([]byte("%PDF-1.4"), ".pdf")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+docRef+"/translate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	jobID, err := uuid.Parse(rec.Header().Get("X-Job-ID"))
	require.NoError(t, err)

	names := sseEventNames(rec.Body.String())
	require.NotEmpty(t, names)
	assert.Equal(t, string(domain.EventInit), names[0])
	assert.Equal(t, string(domain.EventCompleted), names[len(names)-1])
	assert.Contains(t, names, string(domain.EventMetrics))
	assert.Contains(t, names, string(domain.EventBuilding))
	assert.NotContains(t, names, string(domain.EventError))

	job, err := jobs.GetByID(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, storage.JobStatusSucceeded, job.Status)
	assert.Equal(t, "out-ref", job.DownloadRef)
	assert.Equal(t, 3, job.SuccessfulUnits)
	assert.False(t, job.Partial)

	snap, err := snapshots.Get(context.Background(), "job:"+jobID.String())
	require.NoError(t, err)
	assert.Contains(t, string(snap), string(storage.JobStatusSucceeded))
}

func TestTranslate_AllUnitsFailEndsWithErrorEvent(t *testing.T) {
	translator := &stubTranslator{err: domain.ClientError("rejected", nil)}
	router, uploads, jobs, _ := newTranslateMux(t, &stubExtractor{doc: pagedDoc(2)}, translator)

	docRef, err := uploads.SaveBytes([]byte("%PDF-1.4"), ".pdf")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+docRef+"/translate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	names := sseEventNames(rec.Body.String())
	require.NotEmpty(t, names)
	assert.Equal(t, string(domain.EventError), names[len(names)-1])
	assert.NotContains(t, names, string(domain.EventCompleted))

	jobID, err := uuid.Parse(rec.Header().Get("X-Job-ID"))
	require.NoError(t, err)
	job, err := jobs.GetByID(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, storage.JobStatusFailed, job.Status)
	assert.NotEmpty(t, job.Error)
}

func TestTranslate_UnknownDocument(t *testing.T) {
	router, _, _, _ := newTranslateMux(t, &stubExtractor{doc: pagedDoc(1)}, &stubTranslator{})

	for _, docRef := range []string{uuid.NewString(), "*"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+docRef+"/translate", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code, "documentId %q", docRef)
	}
}

func TestTranslate_UnreadableDocument(t *testing.T) {
	extractor := &stubExtractor{err: domain.UnreadableError("open PDF", nil)}
	router, uploads, _, _ := newTranslateMux(t, extractor, &stubTranslator{})

	docRef, err := uploads.SaveBytes([]byte("not a pdf"), ".pdf")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+docRef+"/translate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func newJobMux(t *testing.T) (*chi.Mux, *storage.JobRepository, cache.Client) {
	t.Helper()
	jobs := newTestJobs(t)
	snapshots := cache.NewMemoryClient()
	h := NewJobHandler(observability.Nop(), jobs, snapshots)

	r := chi.NewRouter()
	r.Get("/api/v1/jobs/{jobId}", h.Get)
	return r, jobs, snapshots
}

func TestJobGet_ReturnsStoredJob(t *testing.T) {
	router, jobs, _ := newJobMux(t)

	job := &storage.Job{DocumentRef: "doc-1", Status: storage.JobStatusSucceeded, DownloadRef: "out-1", SuccessfulUnits: 4, TotalUnits: 5, Partial: true}
	require.NoError(t, jobs.Create(context.Background(), job))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var dto JobDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, job.ID.String(), dto.ID)
	assert.Equal(t, string(storage.JobStatusSucceeded), dto.Status)
	assert.Equal(t, "out-1", dto.DownloadRef)
	assert.True(t, dto.Partial)
}

func TestJobGet_SnapshotOverlaysRunningStatus(t *testing.T) {
	router, jobs, snapshots := newJobMux(t)

	job := &storage.Job{DocumentRef: "doc-1", Status: storage.JobStatusRunning}
	require.NoError(t, jobs.Create(context.Background(), job))

	snap, err := json.Marshal(map[string]any{
		"status":    string(storage.JobStatusSucceeded),
		"lastEvent": map[string]any{"type": "completed"},
	})
	require.NoError(t, err)
	require.NoError(t, snapshots.Set(context.Background(), "job:"+job.ID.String(), snap, 0))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var dto JobDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, string(storage.JobStatusSucceeded), dto.Status)
	assert.NotEmpty(t, dto.LastEvent)
}

func TestJobGet_InvalidID(t *testing.T) {
	router, _, _ := newJobMux(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobGet_Missing(t *testing.T) {
	router, _, _ := newJobMux(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
