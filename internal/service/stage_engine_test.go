package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/techhind/fulfillment-api/internal/domain"
)

var engineNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTrackedOrder() *domain.Order {
	order := &domain.Order{}
	order.ID = uuid.New()
	InitializeStages(order)
	return order
}

// stageFields returns a minimal valid field set for each stage
func stageFields(key domain.StageKey) map[string]string {
	switch key {
	case domain.StageEstimateGenerated:
		return map[string]string{"estimate_number": "EST-1001"}
	case domain.StageEstimatePaid:
		return map[string]string{"payment_reference": "PAY-77"}
	case domain.StagePlanner:
		return map[string]string{"planned_delivery_date": "2026-04-01", "planned_priority": "high"}
	case domain.StageDelivery:
		return map[string]string{"warehouse_id": uuid.NewString()}
	case domain.StageAssignTeam:
		return map[string]string{
			domain.FieldFabricatorID: uuid.NewString(),
			domain.FieldInstallerID:  uuid.NewString(),
		}
	case domain.StageNetmeterApply:
		return map[string]string{"netmeter_application_number": "NM-42"}
	case domain.StageSubsidyClaim:
		return map[string]string{"subsidy_claim_number": "SC-9"}
	case domain.StageSubsidyDisbursed:
		return map[string]string{"disbursement_reference": "DSB-1"}
	default:
		return map[string]string{}
	}
}

func completeThrough(t *testing.T, order *domain.Order, until domain.StageKey) {
	t.Helper()
	for _, def := range domain.Stages() {
		advanced, err := CompleteStage(order, def.Key, stageFields(def.Key), domain.AssigneeContext{}, engineNow)
		require.NoError(t, err, "completing %s", def.Key)
		require.True(t, advanced)
		if def.Key == until {
			return
		}
	}
}

func TestCompleteStage_FullPipeline(t *testing.T) {
	order := newTrackedOrder()

	for i, def := range domain.Stages() {
		require.NotNil(t, order.CurrentStageKey)
		assert.Equal(t, def.Key, *order.CurrentStageKey)

		advanced, err := CompleteStage(order, def.Key, stageFields(def.Key), domain.AssigneeContext{}, engineNow.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
		assert.True(t, advanced)
		assert.Equal(t, domain.StageStatusCompleted, order.Stages.Status(def.Key))
		assert.NotNil(t, order.StageCompletedAt(def.Key))
	}

	// Terminal stage completed: no current stage remains
	assert.Nil(t, order.CurrentStageKey)
}

func TestCompleteStage_OutOfOrder(t *testing.T) {
	order := newTrackedOrder()

	_, err := CompleteStage(order, domain.StagePlanner, stageFields(domain.StagePlanner), domain.AssigneeContext{}, engineNow)

	var outOfOrder *OutOfOrderError
	require.ErrorAs(t, err, &outOfOrder)
	assert.Equal(t, domain.StagePlanner, outOfOrder.Requested)
	assert.Equal(t, domain.StageEstimateGenerated, outOfOrder.Current)
	assert.Equal(t, domain.StageStatusLocked, order.Stages.Status(domain.StagePlanner))
}

func TestCompleteStage_UnknownStage(t *testing.T) {
	order := newTrackedOrder()

	_, err := CompleteStage(order, domain.StageKey("teleportation"), nil, domain.AssigneeContext{}, engineNow)
	assert.ErrorIs(t, err, ErrUnknownStage)
}

func TestCompleteStage_Cancelled(t *testing.T) {
	order := newTrackedOrder()
	order.IsCancelled = true

	_, err := CompleteStage(order, domain.StageEstimateGenerated, stageFields(domain.StageEstimateGenerated), domain.AssigneeContext{}, engineNow)
	assert.ErrorIs(t, err, ErrOrderCancelled)
}

func TestCompleteStage_MissingRequiredField(t *testing.T) {
	order := newTrackedOrder()

	_, err := CompleteStage(order, domain.StageEstimateGenerated, map[string]string{"estimate_number": "  "}, domain.AssigneeContext{}, engineNow)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "estimate_number", validationErr.Field)
	assert.Equal(t, domain.StageStatusPending, order.Stages.Status(domain.StageEstimateGenerated))
}

func TestCompleteStage_AmendCompletedStage(t *testing.T) {
	order := newTrackedOrder()
	completeThrough(t, order, domain.StageEstimatePaid)
	stamp := order.StageCompletedAt(domain.StageEstimateGenerated)
	require.NotNil(t, stamp)

	advanced, err := CompleteStage(order, domain.StageEstimateGenerated,
		map[string]string{"estimate_number": "EST-1001-REV2"}, domain.AssigneeContext{}, engineNow.Add(48*time.Hour))
	require.NoError(t, err)

	assert.False(t, advanced)
	assert.Equal(t, "EST-1001-REV2", order.StageData["estimate_number"])
	assert.Equal(t, *stamp, *order.StageCompletedAt(domain.StageEstimateGenerated), "timestamp must not move on amend")
	assert.Equal(t, domain.StagePlanner, *order.CurrentStageKey, "amending must not advance the pipeline")
}

func TestCompleteStage_AmendCannotClearRequiredField(t *testing.T) {
	order := newTrackedOrder()
	completeThrough(t, order, domain.StageEstimateGenerated)

	_, err := CompleteStage(order, domain.StageEstimateGenerated,
		map[string]string{"estimate_number": ""}, domain.AssigneeContext{}, engineNow)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "estimate_number", validationErr.Field)
	assert.Equal(t, "EST-1001", order.StageData["estimate_number"])
}

func TestCompleteStage_AfterTerminal(t *testing.T) {
	order := newTrackedOrder()
	completeThrough(t, order, domain.StageSubsidyDisbursed)
	require.Nil(t, order.CurrentStageKey)

	// Repeating a completed stage still amends; a never-reachable stage errors
	_, err := CompleteStage(order, domain.StageKey("extra"), nil, domain.AssigneeContext{}, engineNow)
	assert.ErrorIs(t, err, ErrUnknownStage)

	advanced, err := CompleteStage(order, domain.StageSubsidyDisbursed,
		map[string]string{"disbursement_reference": "DSB-1-FINAL"}, domain.AssigneeContext{}, engineNow)
	require.NoError(t, err)
	assert.False(t, advanced)
}

func TestCompleteStage_AlreadyTerminal(t *testing.T) {
	order := newTrackedOrder()
	order.CurrentStageKey = nil

	_, err := CompleteStage(order, domain.StageEstimateGenerated,
		stageFields(domain.StageEstimateGenerated), domain.AssigneeContext{}, engineNow)

	var terminalErr *AlreadyTerminalError
	require.ErrorAs(t, err, &terminalErr)
	assert.Equal(t, order.ID.String(), terminalErr.OrderID)
}

func TestCompleteStage_SameAssigneeSubstitution(t *testing.T) {
	order := newTrackedOrder()
	completeThrough(t, order, domain.StageDelivery)

	assignee := uuid.NewString()
	advanced, err := CompleteStage(order, domain.StageAssignTeam,
		map[string]string{domain.FieldAssigneeID: assignee},
		domain.AssigneeContext{SameAssignee: true}, engineNow)
	require.NoError(t, err)

	assert.True(t, advanced)
	assert.True(t, order.FabricatorInstallerAreSame)
	assert.Equal(t, assignee, order.FabricatorID.String())
	assert.Equal(t, assignee, order.InstallerID.String())
}

func TestCompleteStage_LaterStageKeepsAssigneeFlag(t *testing.T) {
	order := newTrackedOrder()
	completeThrough(t, order, domain.StageDelivery)

	assignee := uuid.NewString()
	_, err := CompleteStage(order, domain.StageAssignTeam,
		map[string]string{domain.FieldAssigneeID: assignee},
		domain.AssigneeContext{SameAssignee: true}, engineNow)
	require.NoError(t, err)
	require.True(t, order.FabricatorInstallerAreSame)

	// Fabrication has no assignee fields; completing it with a default
	// context must not touch what the assignment stage recorded.
	_, err = CompleteStage(order, domain.StageFabrication,
		map[string]string{}, domain.AssigneeContext{}, engineNow)
	require.NoError(t, err)

	assert.True(t, order.FabricatorInstallerAreSame)
	require.NotNil(t, order.FabricatorID)
	require.NotNil(t, order.InstallerID)
	assert.Equal(t, assignee, order.FabricatorID.String())
	assert.Equal(t, assignee, order.InstallerID.String())
}

func TestCompleteStage_AmendAssignRequiresDistinctAssignees(t *testing.T) {
	order := newTrackedOrder()
	completeThrough(t, order, domain.StageAssignTeam)
	originalFabricator := *order.FabricatorID
	originalInstaller := *order.InstallerID

	same := uuid.NewString()
	_, err := CompleteStage(order, domain.StageAssignTeam,
		map[string]string{
			domain.FieldFabricatorID: same,
			domain.FieldInstallerID:  same,
		},
		domain.AssigneeContext{}, engineNow)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, domain.FieldInstallerID, validationErr.Field)
	assert.Equal(t, originalFabricator, *order.FabricatorID)
	assert.Equal(t, originalInstaller, *order.InstallerID)
}

func TestCompleteStage_SameAssigneeRequiresAssigneeID(t *testing.T) {
	order := newTrackedOrder()
	completeThrough(t, order, domain.StageDelivery)

	// fabricator_id/installer_id are not accepted as a substitute for assignee_id
	_, err := CompleteStage(order, domain.StageAssignTeam,
		map[string]string{
			domain.FieldFabricatorID: uuid.NewString(),
			domain.FieldInstallerID:  uuid.NewString(),
		},
		domain.AssigneeContext{SameAssignee: true}, engineNow)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, domain.FieldAssigneeID, validationErr.Field)
}

func TestCompleteStage_DistinctAssigneesRequired(t *testing.T) {
	order := newTrackedOrder()
	completeThrough(t, order, domain.StageDelivery)

	same := uuid.NewString()
	_, err := CompleteStage(order, domain.StageAssignTeam,
		map[string]string{
			domain.FieldFabricatorID: same,
			domain.FieldInstallerID:  same,
		},
		domain.AssigneeContext{}, engineNow)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, domain.FieldInstallerID, validationErr.Field)
}

func TestCompleteStage_PlannerLiftsBoardAttributes(t *testing.T) {
	order := newTrackedOrder()
	completeThrough(t, order, domain.StagePlanner)

	require.NotNil(t, order.PlannedDeliveryDate)
	assert.Equal(t, "2026-04-01", order.PlannedDeliveryDate.Format("2006-01-02"))
	assert.Equal(t, "high", order.PlannedPriority)
}

func TestCompleteStage_StateInvariantHolds(t *testing.T) {
	order := newTrackedOrder()

	for _, def := range domain.Stages() {
		_, err := CompleteStage(order, def.Key, stageFields(def.Key), domain.AssigneeContext{}, engineNow)
		require.NoError(t, err)

		// Exactly one pending stage (the current one) at every step
		pending := 0
		for _, d := range domain.Stages() {
			if order.Stages.Status(d.Key) == domain.StageStatusPending {
				pending++
			}
		}
		if order.CurrentStageKey != nil {
			assert.Equal(t, 1, pending)
			assert.Equal(t, domain.StageStatusPending, order.Stages.Status(*order.CurrentStageKey))
		} else {
			assert.Equal(t, 0, pending)
		}
	}
}

func TestInitializeStages(t *testing.T) {
	order := &domain.Order{}
	InitializeStages(order)

	require.NotNil(t, order.CurrentStageKey)
	assert.Equal(t, domain.StageEstimateGenerated, *order.CurrentStageKey)
	assert.Equal(t, domain.StageStatusPending, order.Stages.Status(domain.StageEstimateGenerated))
	for _, def := range domain.Stages()[1:] {
		assert.Equal(t, domain.StageStatusLocked, order.Stages.Status(def.Key), fmt.Sprintf("stage %s", def.Key))
	}
}
