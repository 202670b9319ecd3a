// Package batch drives the extraction pipeline over a collection of
// independent documents. One document's failure never aborts the batch,
// and the output order always matches the input order.
package batch

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kycflow/kycflow-backend/internal/kyc/domain"
	"github.com/kycflow/kycflow-backend/internal/kyc/extractor"
	"github.com/kycflow/kycflow-backend/internal/kyc/normalize"
	"github.com/kycflow/kycflow-backend/internal/kyc/validate"
	"github.com/kycflow/kycflow-backend/pkg/logger"
)

// ProgressFunc is called after each document completes, successful or not.
// completed counts finished documents, not input positions.
type ProgressFunc func(completed, total int, filename string)

// Orchestrator composes the normalization and validation engines over a
// batch of documents fetched through the extraction collaborator.
type Orchestrator struct {
	extractor extractor.Extractor
	engine    *normalize.Engine
	workers   int
	log       *logger.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithWorkers sets the number of documents processed concurrently.
// 1 (the default) processes strictly in order.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// NewOrchestrator creates a batch orchestrator
func NewOrchestrator(ext extractor.Extractor, engine *normalize.Engine, log *logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		extractor: ext,
		engine:    engine,
		workers:   1,
		log:       log,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process runs every document through extract -> normalize -> validate and
// returns the finalized report. Outcomes land in index-addressed slots so
// ordering is independent of the worker count. Cancelling ctx stops
// untried documents; their outcomes carry the cancellation error.
// progress may be nil.
func (o *Orchestrator) Process(ctx context.Context, docs []extractor.Document, progress ProgressFunc) *domain.BatchReport {
	report := &domain.BatchReport{
		Outcomes:  make([]domain.DocumentOutcome, len(docs)),
		StartedAt: time.Now().UTC(),
	}

	var (
		mu        sync.Mutex
		completed int
	)

	g := &errgroup.Group{}
	g.SetLimit(o.workers)

	for i := range docs {
		idx, doc := i, docs[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				report.Outcomes[idx] = errorOutcome(doc.Filename, err.Error())
			} else {
				report.Outcomes[idx] = o.processOne(ctx, doc)
			}

			mu.Lock()
			completed++
			done := completed
			mu.Unlock()

			if progress != nil {
				progress(done, len(docs), doc.Filename)
			}
			return nil
		})
	}
	g.Wait()

	for i := range report.Outcomes {
		out := &report.Outcomes[i]
		switch out.Validation.Status {
		case domain.StatusApproved:
			report.ApprovedCount++
		case domain.StatusRejected:
			report.RejectedCount++
		default:
			report.ErrorCount++
		}
		if out.Perf.TotalTokens != nil {
			report.TotalTokens += *out.Perf.TotalTokens
		}
	}

	report.CompletedAt = time.Now().UTC()
	return report
}

// processOne handles a single document end to end
func (o *Orchestrator) processOne(ctx context.Context, doc extractor.Document) domain.DocumentOutcome {
	log := o.log.WithFilename(doc.Filename)

	raw, err := o.extractor.Extract(ctx, doc)
	if err != nil {
		log.Warn().Err(err).Msg("document extraction failed")
		return errorOutcome(doc.Filename, err.Error())
	}

	rec := o.engine.Record(raw.Payload)
	now := time.Now()
	result := validate.Evaluate(rec, now)

	log.Info().
		Str("verdict", string(result.Status)).
		Int("findings", result.FindingCount()).
		Msg("document processed")

	return domain.DocumentOutcome{
		Filename:   doc.Filename,
		Record:     rec,
		ExpiryOK:   rec.ExpiryValid(now),
		FullName:   rec.FullName(),
		Validation: result,
		Perf:       perfMetrics(raw),
	}
}

// errorOutcome builds the outcome for a document that failed before
// evaluation. Issue and warning slices are empty, not nil, to signal
// "computed, nothing found" on the error path.
func errorOutcome(filename, msg string) domain.DocumentOutcome {
	return domain.DocumentOutcome{
		Filename: filename,
		Validation: domain.ValidationResult{
			Status:         domain.StatusError,
			CriticalIssues: []string{},
			Warnings:       []string{},
		},
		Err: msg,
	}
}

// perfMetrics folds the collaborator's usage and performance reports into
// PerfMetrics. Absent or non-numeric values stay nil.
func perfMetrics(raw *domain.RawExtraction) domain.PerfMetrics {
	var perf domain.PerfMetrics
	if raw.Usage != nil {
		perf.PromptTokens = raw.Usage.PromptTokens
		perf.CompletionTokens = raw.Usage.CompletionTokens
		perf.TotalTokens = raw.Usage.TotalTokens
	}
	if raw.Perf != nil {
		perf.TTFTSeconds = parseSeconds(raw.Perf[domain.PerfKeyTTFT])
		perf.ProcessingSeconds = parseSeconds(raw.Perf[domain.PerfKeyProcessing])
	}
	return perf
}

func parseSeconds(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
