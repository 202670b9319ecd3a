package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kycflow/kycflow-backend/internal/kyc/domain"
	"github.com/kycflow/kycflow-backend/internal/kyc/repository"
	"github.com/kycflow/kycflow-backend/pkg/database"
	"github.com/kycflow/kycflow-backend/pkg/logger"
	"github.com/kycflow/kycflow-backend/pkg/testutil"
)

func newMockRepo(t *testing.T) (*repository.ReportRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := database.FromSqlx(sqlx.NewDb(mockDB, "sqlmock"), logger.New("test", "test"))
	return repository.NewReportRepository(db), mock
}

func sampleReport() *domain.BatchReport {
	return &domain.BatchReport{
		Outcomes: []domain.DocumentOutcome{
			{
				Filename:   "passport.jpg",
				Record:     testutil.ValidRecord(),
				Validation: domain.ValidationResult{Status: domain.StatusApproved},
				Perf: domain.PerfMetrics{
					TotalTokens: testutil.IntPtr(500),
					TTFTSeconds: testutil.FloatPtr(0.41),
				},
			},
			{
				Filename: "blurry.jpg",
				Validation: domain.ValidationResult{
					Status:         domain.StatusError,
					CriticalIssues: []string{},
					Warnings:       []string{},
				},
				Err: "extraction failed",
			},
		},
		TotalTokens:   500,
		ApprovedCount: 1,
		ErrorCount:    1,
		StartedAt:     time.Now().Add(-5 * time.Second).UTC(),
		CompletedAt:   time.Now().UTC(),
	}
}

func TestSaveReport(t *testing.T) {
	repo, mock := newMockRepo(t)
	rep := sampleReport()
	batchID := "3f2a8c1d9b7e4f60a1b2c3d4e5f60718"

	mock.ExpectExec("INSERT INTO kyc_batch_reports").
		WithArgs(batchID, sqlmock.AnyArg(), 500, 1, 0, 1, rep.StartedAt, rep.CompletedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO kyc_document_audit").
		WithArgs(sqlmock.AnyArg(), batchID, "passport.jpg", "APPROVED", 0, 0, 500).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO kyc_document_audit").
		WithArgs(sqlmock.AnyArg(), batchID, "blurry.jpg", "ERROR", 0, 0, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveReport(context.Background(), batchID, rep)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveReport_GeneratesIDWhenEmpty(t *testing.T) {
	repo, mock := newMockRepo(t)
	rep := &domain.BatchReport{
		StartedAt:   time.Now().UTC(),
		CompletedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO kyc_batch_reports").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 0, 0, 0, 0, rep.StartedAt, rep.CompletedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveReport(context.Background(), "", rep)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveReport_InsertFails(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO kyc_batch_reports").
		WillReturnError(errors.New("connection reset"))

	err := repo.SaveReport(context.Background(), "some-id", sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestGetReport(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "outcomes", "total_tokens", "approved_count", "rejected_count", "error_count",
		"started_at", "completed_at", "created_at",
	}).AddRow("abc123", []byte(`[]`), 500, 1, 0, 1, now, now, now)

	mock.ExpectQuery("SELECT (.+) FROM kyc_batch_reports").
		WithArgs("abc123").
		WillReturnRows(rows)

	stored, err := repo.GetReport(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", stored.ID)
	assert.Equal(t, 500, stored.TotalTokens)
	assert.Equal(t, 1, stored.ApprovedCount)
}

func TestGetReport_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM kyc_batch_reports").
		WithArgs("missing").
		WillReturnError(errors.New("sql: no rows in result set"))

	_, err := repo.GetReport(context.Background(), "missing")
	require.Error(t, err)
}

func TestListVerdictCounts(t *testing.T) {
	repo, mock := newMockRepo(t)
	since := time.Now().Add(-24 * time.Hour)

	rows := sqlmock.NewRows([]string{"verdict", "n"}).
		AddRow("APPROVED", 7).
		AddRow("REJECTED", 2).
		AddRow("ERROR", 1)

	mock.ExpectQuery("SELECT verdict, COUNT").
		WithArgs(since).
		WillReturnRows(rows)

	counts, err := repo.ListVerdictCounts(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"APPROVED": 7, "REJECTED": 2, "ERROR": 1}, counts)
}
