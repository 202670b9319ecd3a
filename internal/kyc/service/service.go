package service

import (
	"context"
	"time"

	"github.com/kycflow/kycflow-backend/internal/kyc/batch"
	"github.com/kycflow/kycflow-backend/internal/kyc/domain"
	"github.com/kycflow/kycflow-backend/internal/kyc/events"
	"github.com/kycflow/kycflow-backend/internal/kyc/extractor"
	"github.com/kycflow/kycflow-backend/internal/kyc/report"
	"github.com/kycflow/kycflow-backend/internal/kyc/repository"
	"github.com/kycflow/kycflow-backend/internal/kyc/storage"
	"github.com/kycflow/kycflow-backend/pkg/logger"
)

// Service drives the batch job lifecycle: accept uploads, run the
// orchestrator in the background, persist and publish on completion.
// Repository and publisher are optional; a nil value disables that sink.
type Service struct {
	orch      *batch.Orchestrator
	store     *storage.JobStore
	repo      *repository.ReportRepository
	publisher *events.KYCEventPublisher
	log       *logger.Logger
}

// NewService creates a new KYC batch service
func NewService(orch *batch.Orchestrator, store *storage.JobStore, repo *repository.ReportRepository, publisher *events.KYCEventPublisher, log *logger.Logger) *Service {
	return &Service{
		orch:      orch,
		store:     store,
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

// StartBatch creates a new batch job and processes the documents
// asynchronously. Returns the job immediately so the caller can poll.
// Image bytes are zeroed once processing finishes.
func (s *Service) StartBatch(ctx context.Context, docs []extractor.Document) *domain.BatchJob {
	jobID := storage.GenerateJobID()

	job := &domain.BatchJob{
		JobID:     jobID,
		Status:    domain.JobStatusProcessing,
		Total:     len(docs),
		CreatedAt: time.Now(),
	}
	s.store.StoreJob(job)

	go s.processAsync(jobID, docs)

	return s.store.GetJob(jobID)
}

// processAsync runs the batch in a background goroutine.
func (s *Service) processAsync(jobID string, docs []extractor.Document) {
	// Detached context so request cancellation doesn't kill processing
	bgCtx := context.Background()
	log := s.log.WithBatchID(jobID)

	rep := s.orch.Process(bgCtx, docs, s.noteProgress(jobID))

	// Zero document images immediately after processing
	for i := range docs {
		storage.ZeroBytes(docs[i].Data)
	}

	summary := report.Build(rep)
	s.store.UpdateJob(jobID, func(j *domain.BatchJob) {
		j.Status = domain.JobStatusCompleted
		j.Processed = len(rep.Outcomes)
		j.Report = rep
		j.Summary = summary
	})

	if summary != nil {
		log.Info().
			Int("documents", len(rep.Outcomes)).
			Int("total_tokens", summary.TotalTokens).
			Msg("batch summary:\n" + report.Render(summary))
	}

	if s.publisher != nil {
		for i := range rep.Outcomes {
			s.publisher.PublishDocumentOutcome(bgCtx, jobID, &rep.Outcomes[i])
		}
		s.publisher.PublishBatchCompleted(bgCtx, jobID, rep)
	}

	if s.repo != nil {
		if err := s.repo.SaveReport(bgCtx, jobID, rep); err != nil {
			log.WithError(err).Error().Msg("failed to persist batch report")
		}
	}

	log.Info().
		Int("approved", rep.ApprovedCount).
		Int("rejected", rep.RejectedCount).
		Int("errors", rep.ErrorCount).
		Msg("batch processing completed")
}

// GetJob retrieves a batch job by ID
func (s *Service) GetJob(jobID string) *domain.BatchJob {
	return s.store.GetJob(jobID)
}

// noteProgress records per-document progress on the job
func (s *Service) noteProgress(jobID string) batch.ProgressFunc {
	return func(completed, total int, filename string) {
		s.store.UpdateJob(jobID, func(j *domain.BatchJob) {
			j.Processed = completed
		})
		s.log.Info().
			Str("batch_id", jobID).
			Str("filename", filename).
			Int("completed", completed).
			Int("total", total).
			Msg("document completed")
	}
}
