package domain

// StageKey identifies a step in the order fulfillment pipeline
type StageKey string

const (
	StageEstimateGenerated StageKey = "estimate_generated"
	StageEstimatePaid      StageKey = "estimate_paid"
	StagePlanner           StageKey = "planner"
	StageDelivery          StageKey = "delivery"
	StageAssignTeam        StageKey = "assign_fabricator_and_installer"
	StageFabrication       StageKey = "fabrication"
	StageInstallation      StageKey = "installation"
	StageNetmeterApply     StageKey = "netmeter_apply"
	StageNetmeterInstalled StageKey = "netmeter_installed"
	StageSubsidyClaim      StageKey = "subsidy_claim"
	StageSubsidyDisbursed  StageKey = "subsidy_disbursed"
)

// Field names shared between stage definitions and the transition engine's
// role-dependent substitution rule (fabricator and installer may be the same person)
const (
	FieldFabricatorID = "fabricator_id"
	FieldInstallerID  = "installer_id"
	FieldAssigneeID   = "assignee_id"
)

// StageDefinition is a registry entry describing one pipeline stage.
// RequiredFields must be non-empty in the submitted field set before the
// stage can be completed.
type StageDefinition struct {
	Key            StageKey
	Label          string
	RequiredFields []string
}

// stageRegistry is the single source of truth for stage ordering, required
// fields and terminal detection. Order matters: a stage can only be completed
// when every stage before it is completed.
var stageRegistry = []StageDefinition{
	{Key: StageEstimateGenerated, Label: "Estimate Generated", RequiredFields: []string{"estimate_number"}},
	{Key: StageEstimatePaid, Label: "Estimate Paid", RequiredFields: []string{"payment_reference"}},
	{Key: StagePlanner, Label: "Planner", RequiredFields: []string{"planned_delivery_date", "planned_priority"}},
	{Key: StageDelivery, Label: "Delivery", RequiredFields: []string{"warehouse_id"}},
	{Key: StageAssignTeam, Label: "Assign Fabricator & Installer", RequiredFields: []string{FieldFabricatorID, FieldInstallerID}},
	{Key: StageFabrication, Label: "Fabrication"},
	{Key: StageInstallation, Label: "Installation"},
	{Key: StageNetmeterApply, Label: "Netmeter Applied", RequiredFields: []string{"netmeter_application_number"}},
	{Key: StageNetmeterInstalled, Label: "Netmeter Installed"},
	{Key: StageSubsidyClaim, Label: "Subsidy Claimed", RequiredFields: []string{"subsidy_claim_number"}},
	{Key: StageSubsidyDisbursed, Label: "Subsidy Disbursed", RequiredFields: []string{"disbursement_reference"}},
}

var stageIndex = buildStageIndex()

func buildStageIndex() map[StageKey]int {
	idx := make(map[StageKey]int, len(stageRegistry))
	for i, def := range stageRegistry {
		idx[def.Key] = i
	}
	return idx
}

// Stages returns the ordered registry entries.
func Stages() []StageDefinition {
	out := make([]StageDefinition, len(stageRegistry))
	copy(out, stageRegistry)
	return out
}

// FirstStage returns the entry stage of the pipeline.
func FirstStage() StageKey {
	return stageRegistry[0].Key
}

// IsValidStage reports whether key names a registered stage.
func IsValidStage(key StageKey) bool {
	_, ok := stageIndex[key]
	return ok
}

// StageAfter returns the stage following key in registry order.
// ok is false when key is the terminal stage or unknown.
func StageAfter(key StageKey) (next StageKey, ok bool) {
	i, found := stageIndex[key]
	if !found || i == len(stageRegistry)-1 {
		return "", false
	}
	return stageRegistry[i+1].Key, true
}

// StageBefore returns the stage preceding key in registry order.
func StageBefore(key StageKey) (prev StageKey, ok bool) {
	i, found := stageIndex[key]
	if !found || i == 0 {
		return "", false
	}
	return stageRegistry[i-1].Key, true
}

// RequiredFields returns the field names that must be non-empty before key
// can be completed. The assign stage's fields are subject to role-dependent
// substitution in the transition engine.
func RequiredFields(key StageKey) []string {
	i, found := stageIndex[key]
	if !found {
		return nil
	}
	fields := stageRegistry[i].RequiredFields
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// IsTerminal reports whether key is the last stage in registry order.
func IsTerminal(key StageKey) bool {
	i, found := stageIndex[key]
	return found && i == len(stageRegistry)-1
}

// StagePosition returns key's zero-based position in registry order, or -1.
func StagePosition(key StageKey) int {
	i, found := stageIndex[key]
	if !found {
		return -1
	}
	return i
}

// StageLabel returns the display label for key, or the key itself when unknown.
func StageLabel(key StageKey) string {
	i, found := stageIndex[key]
	if !found {
		return string(key)
	}
	return stageRegistry[i].Label
}
