package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kycflow/kycflow-backend/internal/kyc/batch"
	"github.com/kycflow/kycflow-backend/internal/kyc/domain"
	"github.com/kycflow/kycflow-backend/internal/kyc/extractor"
	"github.com/kycflow/kycflow-backend/internal/kyc/handler"
	"github.com/kycflow/kycflow-backend/internal/kyc/normalize"
	"github.com/kycflow/kycflow-backend/internal/kyc/service"
	"github.com/kycflow/kycflow-backend/internal/kyc/storage"
	"github.com/kycflow/kycflow-backend/pkg/logger"
	"github.com/kycflow/kycflow-backend/pkg/testutil"
)

// fixedExtractor returns the same valid payload for every document
type fixedExtractor struct{}

func (fixedExtractor) Extract(_ context.Context, _ extractor.Document) (*domain.RawExtraction, error) {
	return &domain.RawExtraction{Payload: testutil.ValidPayload()}, nil
}

func newRouter(t *testing.T) *chi.Mux {
	t.Helper()
	log := logger.New("test", "test")

	orch := batch.NewOrchestrator(fixedExtractor{}, normalize.NewEngine(log), log)
	store := storage.NewJobStore(time.Minute)
	t.Cleanup(store.Close)
	svc := service.NewService(orch, store, nil, nil, log)
	h := handler.NewHandler(svc, 0, log)

	r := chi.NewRouter()
	r.Post("/api/v1/kyc/batches", h.CreateBatch)
	r.Get("/api/v1/kyc/batches/{jobID}", h.GetBatch)
	return r
}

func multipartBody(t *testing.T, filenames ...string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, name := range filenames {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0})
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func decodeJob(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	return resp.Data
}

func TestCreateBatch(t *testing.T) {
	router := newRouter(t)

	body, contentType := multipartBody(t, "passport.jpg", "id-card.jpg")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/kyc/batches", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	job := decodeJob(t, rec)
	assert.NotEmpty(t, job["job_id"])
	assert.Equal(t, float64(2), job["total"])
}

func TestCreateBatch_NoFiles(t *testing.T) {
	router := newRouter(t)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("note", "no files here"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/kyc/batches", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing files")
	assert.Contains(t, rec.Body.String(), "BAD_REQUEST")
}

func TestCreateBatch_NotMultipart(t *testing.T) {
	router := newRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/kyc/batches", bytes.NewBufferString(`{"files":[]}`))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetBatch_NotFound(t *testing.T) {
	router := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/kyc/batches/0123456789abcdef0123456789abcdef", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
	assert.Contains(t, rec.Body.String(), "job not found")
}

func TestGetBatch_MalformedJobID(t *testing.T) {
	router := newRouter(t)

	for _, id := range []string{"doesnotexist", "0123456789abcdef", "ZZ23456789abcdef0123456789abcdef"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/kyc/batches/"+id, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code, "id %q", id)
		assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
	}
}

func TestBatchLifecycle(t *testing.T) {
	router := newRouter(t)

	body, contentType := multipartBody(t, "passport.jpg")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/kyc/batches", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	jobID, _ := decodeJob(t, rec)["job_id"].(string)
	require.NotEmpty(t, jobID)

	// poll until the background batch finishes
	deadline := time.Now().Add(5 * time.Second)
	var job map[string]any
	for time.Now().Before(deadline) {
		getReq := httptest.NewRequest(http.MethodGet, "/api/v1/kyc/batches/"+jobID, nil)
		getRec := httptest.NewRecorder()
		router.ServeHTTP(getRec, getReq)
		require.Equal(t, http.StatusOK, getRec.Code)

		job = decodeJob(t, getRec)
		if job["status"] == string(domain.JobStatusCompleted) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	require.Equal(t, string(domain.JobStatusCompleted), job["status"])
	report, ok := job["report"].(map[string]any)
	require.True(t, ok)
	outcomes, ok := report["outcomes"].([]any)
	require.True(t, ok)
	require.Len(t, outcomes, 1)

	outcome := outcomes[0].(map[string]any)
	assert.Equal(t, "passport.jpg", outcome["filename"])
	validation := outcome["kyc_validation"].(map[string]any)
	assert.Equal(t, "APPROVED", validation["status"])

	// single-document batches carry no summary
	assert.Nil(t, job["summary"])
}
