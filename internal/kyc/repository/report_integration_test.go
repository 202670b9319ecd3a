package repository_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kycflow/kycflow-backend/internal/kyc/domain"
	"github.com/kycflow/kycflow-backend/internal/kyc/repository"
	"github.com/kycflow/kycflow-backend/pkg/database"
	"github.com/kycflow/kycflow-backend/pkg/logger"
	"github.com/kycflow/kycflow-backend/pkg/testutil"
)

func mustOutcomesJSON(t *testing.T, rep *domain.BatchReport) string {
	t.Helper()
	data, err := json.Marshal(rep.Outcomes)
	require.NoError(t, err)
	return string(data)
}

func TestReportRepository_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()

	container, err := testutil.NewPostgresContainer(ctx)
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	db, err := database.NewWithDSN(container.DSN, logger.New("test", "test"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, container.CreateKYCSchema(ctx, db.DB))

	repo := repository.NewReportRepository(db)

	batchID := "1b4e28ba2fa14f6bb1c788fe1a2b3c4d"
	rep := sampleReport()

	t.Run("save and load", func(t *testing.T) {
		require.NoError(t, repo.SaveReport(ctx, batchID, rep))

		stored, err := repo.GetReport(ctx, batchID)
		require.NoError(t, err)
		assert.Equal(t, 500, stored.TotalTokens)
		assert.Equal(t, 1, stored.ApprovedCount)
		assert.Equal(t, 1, stored.ErrorCount)
		assert.JSONEq(t, mustOutcomesJSON(t, rep), string(stored.Outcomes))
		assert.WithinDuration(t, time.Now(), stored.CreatedAt, time.Minute)
	})

	t.Run("verdict counts", func(t *testing.T) {
		counts, err := repo.ListVerdictCounts(ctx, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, counts["APPROVED"])
		assert.Equal(t, 1, counts["ERROR"])
	})

	t.Run("missing report", func(t *testing.T) {
		_, err := repo.GetReport(ctx, "9e107d9d372bb6826bd81d3542a419d6")
		require.Error(t, err)
	})
}
