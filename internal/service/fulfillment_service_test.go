package service

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
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*FulfillmentService, *gorm.DB) {
	db := testutil.SetupTestDB(t)
	svc := NewFulfillmentService(
		repository.NewOrderRepository(db),
		repository.NewStageLogRepository(db),
		repository.NewUserRepository(db),
		zap.NewNop(),
		db,
	)
	return svc, db
}

func TestFulfillmentService_AdvanceStage(t *testing.T) {
	svc, db := newTestService(t)
	order := testutil.CreateTestOrder(t, db, nil)

	dto, err := svc.AdvanceStage(context.Background(), order.ID, domain.StageEstimateGenerated,
		&domain.CompleteStageRequest{
			Fields:          map[string]string{"estimate_number": "EST-3001"},
			CompletedByID:   "user-7",
			CompletedByName: "Asha Verma",
			Notes:           "sent to customer",
		})
	require.NoError(t, err)

	require.NotNil(t, dto.CurrentStageKey)
	assert.Equal(t, domain.StageEstimatePaid, *dto.CurrentStageKey)
	assert.Equal(t, "EST-3001", dto.StageData["estimate_number"])

	// Completion lands in the audit trail
	logs, err := svc.GetStageLog(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.StageEstimateGenerated, logs[0].Stage)
	assert.Equal(t, "Asha Verma", logs[0].CompletedByName)
}

func TestFulfillmentService_AdvanceStage_AmendSkipsAudit(t *testing.T) {
	svc, db := newTestService(t)
	order := testutil.CreateTestOrder(t, db, nil)

	_, err := svc.AdvanceStage(context.Background(), order.ID, domain.StageEstimateGenerated,
		&domain.CompleteStageRequest{Fields: map[string]string{"estimate_number": "EST-1"}})
	require.NoError(t, err)

	dto, err := svc.AdvanceStage(context.Background(), order.ID, domain.StageEstimateGenerated,
		&domain.CompleteStageRequest{Fields: map[string]string{"estimate_number": "EST-1-REV2"}})
	require.NoError(t, err)
	assert.Equal(t, "EST-1-REV2", dto.StageData["estimate_number"])

	logs, err := svc.GetStageLog(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 1, "amending must not add an audit entry")
}

func TestFulfillmentService_AdvanceStage_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AdvanceStage(context.Background(), uuid.New(), domain.StageEstimateGenerated,
		&domain.CompleteStageRequest{Fields: map[string]string{"estimate_number": "EST-1"}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFulfillmentService_AdvanceStage_OutOfOrderNotPersisted(t *testing.T) {
	svc, db := newTestService(t)
	order := testutil.CreateTestOrder(t, db, nil)

	_, err := svc.AdvanceStage(context.Background(), order.ID, domain.StagePlanner,
		&domain.CompleteStageRequest{Fields: map[string]string{
			"planned_delivery_date": "2026-04-01",
			"planned_priority":      "high",
		}})

	var outOfOrder *OutOfOrderError
	require.ErrorAs(t, err, &outOfOrder)

	fresh, err := svc.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, fresh.CurrentStageKey)
	assert.Equal(t, domain.StageEstimateGenerated, *fresh.CurrentStageKey)
}

func TestFulfillmentService_RecordChallan(t *testing.T) {
	svc, db := newTestService(t)
	order := testutil.CreateTestOrder(t, db, nil)

	at := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	dto, err := svc.RecordChallan(context.Background(), order.ID, domain.ChallanEvent{
		Type:       domain.ChallanEventDispatch,
		Quantity:   4,
		OccurredAt: at,
	})
	require.NoError(t, err)

	assert.Equal(t, 4.0, dto.TotalShipped)
	assert.Equal(t, 6.0, dto.TotalPending)
	assert.Equal(t, domain.DeliveryStatusPartial, dto.DeliveryStatus)
	assert.Equal(t, domain.BoardColumnPartial, dto.BoardColumn)
	assert.Equal(t, 1, dto.ChallanCount)

	// Metrics survive a reload
	fresh, err := svc.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, fresh.TotalShipped)
}

func TestFulfillmentService_RecordChallan_RejectedNotPersisted(t *testing.T) {
	svc, db := newTestService(t)
	order := testutil.CreateTestOrder(t, db, nil)

	_, err := svc.RecordChallan(context.Background(), order.ID, domain.ChallanEvent{
		Type:       domain.ChallanEventReturn,
		Quantity:   1,
		OccurredAt: time.Now().UTC(),
	})

	var deltaErr *InvalidDeltaError
	require.ErrorAs(t, err, &deltaErr)

	fresh, err := svc.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, fresh.TotalShipped)
	assert.Equal(t, 0, fresh.ChallanCount)
}

func TestFulfillmentService_GetBoard(t *testing.T) {
	svc, db := newTestService(t)

	fab := testutil.CreateTestUser(t, db, "Ravi Kumar", domain.UserRoleFabricator)
	inst := testutil.CreateTestUser(t, db, "Meena Joshi", domain.UserRoleInstaller)

	early := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC)

	testutil.CreateTestOrder(t, db, func(o *domain.Order) {
		o.PlannedDeliveryDate = &late
	})
	urgent := testutil.CreateTestOrder(t, db, func(o *domain.Order) {
		o.PlannedDeliveryDate = &early
		o.FabricatorID = &fab.ID
		o.InstallerID = &inst.ID
	})
	testutil.CreateTestOrder(t, db, func(o *domain.Order) {
		o.TotalShipped = 4
		o.TotalPending = 6
		o.DeliveryStatus = domain.DeliveryStatusPartial
	})

	board, err := svc.GetBoard(context.Background(), nil)
	require.NoError(t, err)

	pending := board.Columns[domain.BoardColumnPending]
	require.Len(t, pending, 2)
	assert.Equal(t, urgent.OrderNumber, pending[0].OrderNumber, "earliest planned date ranks first")
	assert.Equal(t, "Ravi Kumar", pending[0].FabricatorName)
	assert.Equal(t, "Meena Joshi", pending[0].InstallerName)

	assert.Len(t, board.Columns[domain.BoardColumnPartial], 1)
	assert.Empty(t, board.Columns[domain.BoardColumnComplete])

	summary := board.Summaries[domain.BoardColumnPending]
	assert.Equal(t, 2, summary.OrderCount)
	assert.Equal(t, 20.0, summary.TotalRequired)
}

func TestFulfillmentService_GetByID_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
