package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kycflow/kycflow-backend/internal/kyc/extractor"
	"github.com/kycflow/kycflow-backend/internal/kyc/service"
	apperrors "github.com/kycflow/kycflow-backend/pkg/errors"
	"github.com/kycflow/kycflow-backend/pkg/httputil"
	"github.com/kycflow/kycflow-backend/pkg/logger"
)

const defaultMaxUploadSize = 20 << 20 // 20MB

// Handler handles HTTP requests for KYC batch processing
type Handler struct {
	service       *service.Service
	maxUploadSize int64
	log           *logger.Logger
}

// NewHandler creates a new KYC batch handler
func NewHandler(svc *service.Service, maxUploadSize int64, log *logger.Logger) *Handler {
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxUploadSize
	}
	return &Handler{
		service:       svc,
		maxUploadSize: maxUploadSize,
		log:           log,
	}
}

// batchPath carries the path parameters of the job endpoints
type batchPath struct {
	JobID string `validate:"required,hexadecimal,len=32"`
}

// CreateBatch handles POST /kyc/batches
// Accepts a multipart form with one or more "files" parts, each a
// document image. Returns the job immediately for polling.
func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		httputil.Error(w, apperrors.BadRequest("upload too large or invalid multipart form"))
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		httputil.Error(w, apperrors.BadRequest("missing files in request"))
		return
	}

	docs := make([]extractor.Document, 0, len(files))
	for _, fh := range files {
		file, err := fh.Open()
		if err != nil {
			httputil.Error(w, apperrors.BadRequest("failed to open uploaded file "+fh.Filename))
			return
		}

		// Read into memory only; never to disk
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			httputil.Error(w, apperrors.Internal("failed to read uploaded file "+fh.Filename))
			return
		}

		docs = append(docs, extractor.Document{
			Filename: fh.Filename,
			Data:     data,
		})
	}

	job := h.service.StartBatch(r.Context(), docs)

	h.log.Info().
		Str("job_id", job.JobID).
		Int("documents", len(docs)).
		Msg("batch accepted")

	httputil.JSON(w, http.StatusAccepted, job)
}

// GetBatch handles GET /kyc/batches/{jobID}
// Returns the job status and, once completed, the full batch report.
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	path := batchPath{JobID: chi.URLParam(r, "jobID")}
	if err := httputil.Validate(path); err != nil {
		httputil.Error(w, err)
		return
	}

	job := h.service.GetJob(path.JobID)
	if job == nil {
		httputil.Error(w, apperrors.NotFound("job"))
		return
	}

	httputil.JSON(w, http.StatusOK, job)
}
