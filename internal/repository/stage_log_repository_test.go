package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/techhind/fulfillment-api/internal/domain"
	"github.com/techhind/fulfillment-api/internal/repository"
	"github.com/techhind/fulfillment-api/internal/testutil"
	"gorm.io/gorm"
)

func TestStageLogRepository_RecordCompletion(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewStageLogRepository(db)
	order := testutil.CreateTestOrder(t, db, nil)

	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	err := repo.RecordCompletion(context.Background(), order.ID,
		domain.StageEstimateGenerated, "user-1", "Asha Verma", "first cut", at)
	require.NoError(t, err)

	logs, err := repo.GetByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.StageEstimateGenerated, logs[0].Stage)
	assert.Equal(t, "Asha Verma", logs[0].CompletedByName)
	assert.Equal(t, "first cut", logs[0].Notes)
	assert.NotEqual(t, uuid.Nil, logs[0].ID)
}

func TestStageLogRepository_GetByOrderID_NewestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewStageLogRepository(db)
	order := testutil.CreateTestOrder(t, db, nil)
	other := testutil.CreateTestOrder(t, db, nil)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	stages := []domain.StageKey{domain.StageEstimateGenerated, domain.StageEstimatePaid, domain.StagePlanner}
	for i, stage := range stages {
		err := repo.RecordCompletion(context.Background(), order.ID, stage, "", "", "", base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}
	err := repo.RecordCompletion(context.Background(), other.ID, domain.StageEstimateGenerated, "", "", "", base)
	require.NoError(t, err)

	logs, err := repo.GetByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, domain.StagePlanner, logs[0].Stage)
	assert.Equal(t, domain.StageEstimateGenerated, logs[2].Stage)

	latest, err := repo.GetLatestByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StagePlanner, latest.Stage)
}

func TestStageLogRepository_GetLatest_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewStageLogRepository(db)

	_, err := repo.GetLatestByOrderID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestStageLogRepository_CountCompletionsByStage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewStageLogRepository(db)
	order := testutil.CreateTestOrder(t, db, nil)
	other := testutil.CreateTestOrder(t, db, nil)

	inRange := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	outOfRange := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.RecordCompletion(context.Background(), order.ID, domain.StageEstimateGenerated, "", "", "", inRange))
	require.NoError(t, repo.RecordCompletion(context.Background(), other.ID, domain.StageEstimateGenerated, "", "", "", inRange))
	require.NoError(t, repo.RecordCompletion(context.Background(), order.ID, domain.StageEstimatePaid, "", "", "", inRange))
	require.NoError(t, repo.RecordCompletion(context.Background(), other.ID, domain.StageEstimatePaid, "", "", "", outOfRange))

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	counts, err := repo.CountCompletionsByStage(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[domain.StageEstimateGenerated])
	assert.Equal(t, int64(1), counts[domain.StageEstimatePaid])
}

func TestStageLogRepository_DeleteByOrderID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewStageLogRepository(db)
	order := testutil.CreateTestOrder(t, db, nil)

	require.NoError(t, repo.RecordCompletion(context.Background(), order.ID, domain.StageEstimateGenerated, "", "", "", time.Now()))
	require.NoError(t, repo.DeleteByOrderID(context.Background(), order.ID))

	logs, err := repo.GetByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)
}
