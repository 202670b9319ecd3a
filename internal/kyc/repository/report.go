package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/kycflow/kycflow-backend/internal/kyc/domain"
	"github.com/kycflow/kycflow-backend/pkg/database"
)

// ReportRepository persists finalized batch reports and per-document
// audit rows. Writes are best-effort: the caller logs failures and the
// batch result is served from memory regardless.
type ReportRepository struct {
	db *database.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *database.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// StoredReport is a persisted batch report row
type StoredReport struct {
	ID            string          `db:"id"`
	Outcomes      json.RawMessage `db:"outcomes"`
	TotalTokens   int             `db:"total_tokens"`
	ApprovedCount int             `db:"approved_count"`
	RejectedCount int             `db:"rejected_count"`
	ErrorCount    int             `db:"error_count"`
	StartedAt     time.Time       `db:"started_at"`
	CompletedAt   time.Time       `db:"completed_at"`
	CreatedAt     time.Time       `db:"created_at"`
}

// SaveReport stores a finalized batch report and one audit row per document
func (r *ReportRepository) SaveReport(ctx context.Context, batchID string, rep *domain.BatchReport) error {
	if batchID == "" {
		batchID = uuid.New().String()
	}

	outcomesJSON, err := json.Marshal(rep.Outcomes)
	if err != nil {
		outcomesJSON = []byte("[]")
	}

	query := `
		INSERT INTO kyc_batch_reports (id, outcomes, total_tokens, approved_count, rejected_count, error_count, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if _, err := r.db.ExecContext(ctx, query,
		batchID,
		outcomesJSON,
		rep.TotalTokens,
		rep.ApprovedCount,
		rep.RejectedCount,
		rep.ErrorCount,
		rep.StartedAt,
		rep.CompletedAt,
	); err != nil {
		return err
	}

	return r.saveAuditRows(ctx, batchID, rep)
}

func (r *ReportRepository) saveAuditRows(ctx context.Context, batchID string, rep *domain.BatchReport) error {
	query := `
		INSERT INTO kyc_document_audit (id, batch_id, filename, verdict, critical_issue_count, warning_count, total_tokens)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for i := range rep.Outcomes {
		out := &rep.Outcomes[i]
		tokens := 0
		if out.Perf.TotalTokens != nil {
			tokens = *out.Perf.TotalTokens
		}
		if _, err := r.db.ExecContext(ctx, query,
			uuid.New().String(),
			batchID,
			out.Filename,
			string(out.Validation.Status),
			len(out.Validation.CriticalIssues),
			len(out.Validation.Warnings),
			tokens,
		); err != nil {
			return err
		}
	}

	return nil
}

// GetReport loads a persisted batch report by ID
func (r *ReportRepository) GetReport(ctx context.Context, batchID string) (*StoredReport, error) {
	query := `
		SELECT id, outcomes, total_tokens, approved_count, rejected_count, error_count, started_at, completed_at, created_at
		FROM kyc_batch_reports
		WHERE id = $1
	`

	var stored StoredReport
	if err := r.db.GetContext(ctx, &stored, query, batchID); err != nil {
		return nil, err
	}
	return &stored, nil
}

// ListVerdictCounts returns how many documents landed on each verdict
// since the given time
func (r *ReportRepository) ListVerdictCounts(ctx context.Context, since time.Time) (map[string]int, error) {
	query := `
		SELECT verdict, COUNT(*) AS n
		FROM kyc_document_audit
		WHERE created_at >= $1
		GROUP BY verdict
	`

	rows, err := r.db.QueryxContext(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var verdict string
		var n int
		if err := rows.Scan(&verdict, &n); err != nil {
			return nil, err
		}
		counts[verdict] = n
	}
	return counts, rows.Err()
}
