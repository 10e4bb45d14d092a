package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return parsed
}

func TestStages_Ordering(t *testing.T) {
	stages := Stages()
	assert.Len(t, stages, 11)
	assert.Equal(t, StageEstimateGenerated, stages[0].Key)
	assert.Equal(t, StageSubsidyDisbursed, stages[len(stages)-1].Key)

	// StageAfter walks the whole registry in order
	key := FirstStage()
	visited := []StageKey{key}
	for {
		next, ok := StageAfter(key)
		if !ok {
			break
		}
		visited = append(visited, next)
		key = next
	}
	assert.Len(t, visited, len(stages))
	for i, def := range stages {
		assert.Equal(t, def.Key, visited[i])
	}
}

func TestStageAfter_Terminal(t *testing.T) {
	_, ok := StageAfter(StageSubsidyDisbursed)
	assert.False(t, ok)

	_, ok = StageAfter(StageKey("bogus"))
	assert.False(t, ok)
}

func TestStageBefore(t *testing.T) {
	prev, ok := StageBefore(StageEstimatePaid)
	assert.True(t, ok)
	assert.Equal(t, StageEstimateGenerated, prev)

	_, ok = StageBefore(StageEstimateGenerated)
	assert.False(t, ok)
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StageSubsidyDisbursed))
	assert.False(t, IsTerminal(StageSubsidyClaim))
	assert.False(t, IsTerminal(StageKey("bogus")))
}

func TestRequiredFields_Copies(t *testing.T) {
	fields := RequiredFields(StageAssignTeam)
	assert.Equal(t, []string{FieldFabricatorID, FieldInstallerID}, fields)

	// Mutating the returned slice must not corrupt the registry
	fields[0] = "tampered"
	assert.Equal(t, []string{FieldFabricatorID, FieldInstallerID}, RequiredFields(StageAssignTeam))
}

func TestStageLabel_Unknown(t *testing.T) {
	assert.Equal(t, "Planner", StageLabel(StagePlanner))
	assert.Equal(t, "bogus", StageLabel(StageKey("bogus")))
}

func TestStageStateMap_DefaultsToLocked(t *testing.T) {
	m := StageStateMap{StageEstimateGenerated: StageStatusPending}
	assert.Equal(t, StageStatusPending, m.Status(StageEstimateGenerated))
	assert.Equal(t, StageStatusLocked, m.Status(StageFabrication))
}

func TestOrder_SetStageCompletedAt_Once(t *testing.T) {
	order := &Order{}
	first := mustTime(t, "2026-03-01T10:00:00Z")
	second := mustTime(t, "2026-03-02T10:00:00Z")

	assert.True(t, order.SetStageCompletedAt(StagePlanner, first))
	assert.False(t, order.SetStageCompletedAt(StagePlanner, second))
	assert.Equal(t, first, *order.StageCompletedAt(StagePlanner))

	assert.False(t, order.SetStageCompletedAt(StageKey("bogus"), first))
	assert.Nil(t, order.StageCompletedAt(StageKey("bogus")))
}
