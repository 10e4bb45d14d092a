package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/techhind/fulfillment-api/internal/domain"
)

// CompleteStage validates and applies a single stage completion on an order.
//
// The stage must be the order's current stage, and every required field for
// it must be present and non-empty, subject to role-dependent substitution:
// when assignees.SameAssignee is set, the assign stage requires a single
// assignee_id instead of distinct fabricator_id and installer_id values.
//
// Re-submitting an already-completed stage is treated as an update: fields
// may be amended but stage state, the current-stage pointer and the recorded
// completion timestamp are left untouched.
//
// Returns advanced=true when the call performed a first-time completion.
func CompleteStage(order *domain.Order, stageKey domain.StageKey, fields map[string]string, assignees domain.AssigneeContext, now time.Time) (advanced bool, err error) {
	if !domain.IsValidStage(stageKey) {
		return false, fmt.Errorf("%w: %s", ErrUnknownStage, stageKey)
	}
	if order.IsCancelled {
		return false, ErrOrderCancelled
	}

	// Edit-after-complete: amend fields without re-transitioning.
	if order.Stages.Status(stageKey) == domain.StageStatusCompleted {
		if err := validateAmendedFields(stageKey, fields, assignees); err != nil {
			return false, err
		}
		applyStageFields(order, stageKey, fields, assignees)
		return false, nil
	}

	if order.CurrentStageKey == nil {
		return false, &AlreadyTerminalError{OrderID: order.ID.String()}
	}
	if *order.CurrentStageKey != stageKey {
		return false, &OutOfOrderError{Requested: stageKey, Current: *order.CurrentStageKey}
	}

	if err := validateRequiredFields(stageKey, fields, assignees); err != nil {
		return false, err
	}
	applyStageFields(order, stageKey, fields, assignees)

	order.Stages[stageKey] = domain.StageStatusCompleted
	if next, ok := domain.StageAfter(stageKey); ok {
		order.Stages[next] = domain.StageStatusPending
		order.CurrentStageKey = &next
	} else {
		order.CurrentStageKey = nil
	}
	order.SetStageCompletedAt(stageKey, now)

	if err := checkStageInvariant(order); err != nil {
		return false, err
	}
	return true, nil
}

// requiredFieldsFor resolves the required field set for a stage, applying the
// shared-assignee substitution rule before field-presence validation.
func requiredFieldsFor(stageKey domain.StageKey, assignees domain.AssigneeContext) []string {
	fields := domain.RequiredFields(stageKey)
	if !assignees.SameAssignee {
		return fields
	}

	substituted := make([]string, 0, len(fields))
	replaced := false
	for _, f := range fields {
		if f == domain.FieldFabricatorID || f == domain.FieldInstallerID {
			if !replaced {
				substituted = append(substituted, domain.FieldAssigneeID)
				replaced = true
			}
			continue
		}
		substituted = append(substituted, f)
	}
	return substituted
}

func validateRequiredFields(stageKey domain.StageKey, fields map[string]string, assignees domain.AssigneeContext) error {
	required := requiredFieldsFor(stageKey, assignees)
	for _, name := range required {
		if strings.TrimSpace(fields[name]) == "" {
			return &ValidationError{Field: name}
		}
	}

	// Distinct assignees are required when fabricator and installer differ.
	if !assignees.SameAssignee && contains(required, domain.FieldFabricatorID) {
		if fields[domain.FieldFabricatorID] == fields[domain.FieldInstallerID] {
			return &ValidationError{Field: domain.FieldInstallerID, Reason: "must differ from fabricator_id"}
		}
	}
	return nil
}

// validateAmendedFields checks an edit-after-complete submission: supplied
// required fields may change value but cannot be blanked out, and the
// distinct-assignee rule applies the same as on first completion.
func validateAmendedFields(stageKey domain.StageKey, fields map[string]string, assignees domain.AssigneeContext) error {
	required := requiredFieldsFor(stageKey, assignees)
	for _, name := range required {
		if v, ok := fields[name]; ok && strings.TrimSpace(v) == "" {
			return &ValidationError{Field: name, Reason: "cannot be cleared on a completed stage"}
		}
	}

	if !assignees.SameAssignee && contains(required, domain.FieldFabricatorID) {
		fab, fabOK := fields[domain.FieldFabricatorID]
		inst, instOK := fields[domain.FieldInstallerID]
		if fabOK && instOK && fab == inst {
			return &ValidationError{Field: domain.FieldInstallerID, Reason: "must differ from fabricator_id"}
		}
	}
	return nil
}

// applyStageFields merges submitted fields into the order's stage data and
// lifts the values the core itself reads into their dedicated columns.
func applyStageFields(order *domain.Order, stageKey domain.StageKey, fields map[string]string, assignees domain.AssigneeContext) {
	if order.StageData == nil {
		order.StageData = domain.StageFieldMap{}
	}
	for k, v := range fields {
		order.StageData[k] = v
	}

	if v, ok := fields["planned_delivery_date"]; ok && v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			order.PlannedDeliveryDate = &t
		}
	}
	if v, ok := fields["planned_priority"]; ok && v != "" {
		order.PlannedPriority = v
	}
	if v, ok := fields["warehouse_id"]; ok && v != "" {
		if id, err := uuid.Parse(v); err == nil {
			order.WarehouseID = &id
		}
	}

	// The assignee flag and id columns belong to the assignment stage; a later
	// stage's completion context must not overwrite what was recorded there.
	if stageKey != domain.StageAssignTeam {
		return
	}

	order.FabricatorInstallerAreSame = assignees.SameAssignee
	if assignees.SameAssignee {
		if v, ok := fields[domain.FieldAssigneeID]; ok && v != "" {
			if id, err := uuid.Parse(v); err == nil {
				order.FabricatorID = &id
				order.InstallerID = &id
			}
		}
		return
	}
	if v, ok := fields[domain.FieldFabricatorID]; ok && v != "" {
		if id, err := uuid.Parse(v); err == nil {
			order.FabricatorID = &id
		}
	}
	if v, ok := fields[domain.FieldInstallerID]; ok && v != "" {
		if id, err := uuid.Parse(v); err == nil {
			order.InstallerID = &id
		}
	}
}

// checkStageInvariant verifies the postcondition of a transition: at most one
// pending stage which is the current stage, every stage before it completed,
// every stage after it locked (or pending only for the immediate next).
func checkStageInvariant(order *domain.Order) error {
	currentPos := len(domain.Stages())
	if order.CurrentStageKey != nil {
		currentPos = domain.StagePosition(*order.CurrentStageKey)
		if order.Stages.Status(*order.CurrentStageKey) != domain.StageStatusPending {
			return fmt.Errorf("stage state corrupted: current stage %s is not pending", *order.CurrentStageKey)
		}
	}

	for i, def := range domain.Stages() {
		status := order.Stages.Status(def.Key)
		switch {
		case i < currentPos:
			if status != domain.StageStatusCompleted {
				return fmt.Errorf("stage state corrupted: stage %s before current is %s", def.Key, status)
			}
		case i == currentPos:
			// checked above
		default:
			if status == domain.StageStatusCompleted {
				return fmt.Errorf("stage state corrupted: stage %s after current is completed", def.Key)
			}
		}
	}
	return nil
}

// InitializeStages puts a freshly created order at the start of the pipeline:
// first stage pending and current, everything else locked by omission.
func InitializeStages(order *domain.Order) {
	first := domain.FirstStage()
	order.Stages = domain.StageStateMap{first: domain.StageStatusPending}
	if order.StageData == nil {
		order.StageData = domain.StageFieldMap{}
	}
	order.CurrentStageKey = &first
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
