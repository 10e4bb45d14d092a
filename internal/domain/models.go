package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns a UUID when the caller has not set one
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// StageStatus represents the state of a single pipeline stage on an order
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusCompleted StageStatus = "completed"
	StageStatusLocked    StageStatus = "locked"
)

// DeliveryStatus is the derived tri-state classification of shipped vs. required quantity
type DeliveryStatus string

const (
	DeliveryStatusPending  DeliveryStatus = "pending"
	DeliveryStatusPartial  DeliveryStatus = "partial"
	DeliveryStatusComplete DeliveryStatus = "complete"
)

// IsValid checks if the DeliveryStatus is a valid enum value
func (ds DeliveryStatus) IsValid() bool {
	switch ds {
	case DeliveryStatusPending, DeliveryStatusPartial, DeliveryStatusComplete:
		return true
	}
	return false
}

// StageStateMap maps stage keys to their status on one order. Stages absent
// from the map are locked. Stored as a JSON column.
type StageStateMap map[StageKey]StageStatus

// Value implements driver.Valuer for JSON column storage
func (m StageStateMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for JSON column storage
func (m *StageStateMap) Scan(value interface{}) error {
	if value == nil {
		*m = StageStateMap{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StageStateMap", value)
	}
	return json.Unmarshal(data, m)
}

// Status returns the state of key on this order; absent keys are locked.
func (m StageStateMap) Status(key StageKey) StageStatus {
	if s, ok := m[key]; ok {
		return s
	}
	return StageStatusLocked
}

// StageFieldMap holds the field values submitted with stage completions
// (estimate numbers, payment references, assignment ids). Stored as a JSON column.
type StageFieldMap map[string]string

// Value implements driver.Valuer for JSON column storage
func (m StageFieldMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for JSON column storage
func (m *StageFieldMap) Scan(value interface{}) error {
	if value == nil {
		*m = StageFieldMap{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StageFieldMap", value)
	}
	return json.Unmarshal(data, m)
}

// Order is the fulfillment-tracking aggregate root. Stage state, delivery
// metrics and board placement all hang off this record; challan events and
// stage completions are the only mutators.
type Order struct {
	BaseModel
	OrderNumber  string     `gorm:"type:varchar(50);unique;index;column:order_number"`
	CustomerID   uuid.UUID  `gorm:"type:uuid;not null;index;column:customer_id"`
	CustomerName string     `gorm:"type:varchar(200);column:customer_name"`
	WarehouseID  *uuid.UUID `gorm:"type:uuid;index;column:warehouse_id"`

	// Stage pipeline state. CurrentStageKey is nil before the pipeline starts
	// and after the terminal stage completes.
	Stages          StageStateMap `gorm:"type:jsonb;not null;column:stages"`
	StageData       StageFieldMap `gorm:"type:jsonb;not null;column:stage_data"`
	CurrentStageKey *StageKey     `gorm:"type:varchar(50);index;column:current_stage_key"`

	// Assignment. When FabricatorInstallerAreSame is true a single assignee
	// covers both roles; otherwise two distinct assignees are required.
	FabricatorInstallerAreSame bool       `gorm:"not null;default:false;column:fabricator_installer_are_same"`
	FabricatorID               *uuid.UUID `gorm:"type:uuid;column:fabricator_id"`
	InstallerID                *uuid.UUID `gorm:"type:uuid;column:installer_id"`

	// Per-stage completion timestamps, set exactly once by the transition engine.
	EstimateGeneratedCompletedAt *time.Time `gorm:"column:estimate_generated_completed_at"`
	EstimatePaidCompletedAt      *time.Time `gorm:"column:estimate_paid_completed_at"`
	PlannerCompletedAt           *time.Time `gorm:"column:planner_completed_at"`
	DeliveryCompletedAt          *time.Time `gorm:"column:delivery_completed_at"`
	AssignTeamCompletedAt        *time.Time `gorm:"column:assign_fabricator_and_installer_completed_at"`
	FabricationCompletedAt       *time.Time `gorm:"column:fabrication_completed_at"`
	InstallationCompletedAt      *time.Time `gorm:"column:installation_completed_at"`
	NetmeterApplyCompletedAt     *time.Time `gorm:"column:netmeter_apply_completed_at"`
	NetmeterInstalledCompletedAt *time.Time `gorm:"column:netmeter_installed_completed_at"`
	SubsidyClaimCompletedAt      *time.Time `gorm:"column:subsidy_claim_completed_at"`
	SubsidyDisbursedCompletedAt  *time.Time `gorm:"column:subsidy_disbursed_completed_at"`

	// Delivery metrics, recomputed by the aggregator on every challan event.
	// Invariant: TotalShipped + TotalPending == TotalRequired.
	TotalRequired   float64        `gorm:"type:decimal(15,2);not null;default:0;column:total_required"`
	TotalShipped    float64        `gorm:"type:decimal(15,2);not null;default:0;column:total_shipped"`
	TotalPending    float64        `gorm:"type:decimal(15,2);not null;default:0;column:total_pending"`
	DeliveryStatus  DeliveryStatus `gorm:"type:varchar(20);not null;default:'pending';index;column:delivery_status"`
	LastChallanDate *time.Time     `gorm:"column:last_challan_date"`
	ChallanCount    int            `gorm:"not null;default:0;column:challan_count"`

	// Board triage attributes written by the planner stage.
	PlannedDeliveryDate *time.Time `gorm:"type:date;index;column:planned_delivery_date"`
	PlannedPriority     string     `gorm:"type:varchar(50);column:planned_priority"`

	// Cancellation freezes stage transitions; the order stays readable.
	IsCancelled bool `gorm:"not null;default:false;column:is_cancelled"`
}

// stageCompletedAtFields maps each stage key to an accessor pair for its
// dedicated timestamp column.
func (o *Order) stageCompletedAtField(key StageKey) **time.Time {
	switch key {
	case StageEstimateGenerated:
		return &o.EstimateGeneratedCompletedAt
	case StageEstimatePaid:
		return &o.EstimatePaidCompletedAt
	case StagePlanner:
		return &o.PlannerCompletedAt
	case StageDelivery:
		return &o.DeliveryCompletedAt
	case StageAssignTeam:
		return &o.AssignTeamCompletedAt
	case StageFabrication:
		return &o.FabricationCompletedAt
	case StageInstallation:
		return &o.InstallationCompletedAt
	case StageNetmeterApply:
		return &o.NetmeterApplyCompletedAt
	case StageNetmeterInstalled:
		return &o.NetmeterInstalledCompletedAt
	case StageSubsidyClaim:
		return &o.SubsidyClaimCompletedAt
	case StageSubsidyDisbursed:
		return &o.SubsidyDisbursedCompletedAt
	}
	return nil
}

// StageCompletedAt returns the completion timestamp recorded for key, if any.
func (o *Order) StageCompletedAt(key StageKey) *time.Time {
	f := o.stageCompletedAtField(key)
	if f == nil {
		return nil
	}
	return *f
}

// SetStageCompletedAt stamps the completion time for key once. Repeated calls
// leave the first stamp untouched and report false.
func (o *Order) SetStageCompletedAt(key StageKey, at time.Time) bool {
	f := o.stageCompletedAtField(key)
	if f == nil || *f != nil {
		return false
	}
	t := at
	*f = &t
	return true
}

// StageLog records a stage completion for audit purposes
type StageLog struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID         uuid.UUID `gorm:"type:uuid;not null;index;column:order_id"`
	Order           *Order    `gorm:"foreignKey:OrderID"`
	Stage           StageKey  `gorm:"type:varchar(50);not null;column:stage"`
	CompletedByID   string    `gorm:"type:varchar(100);column:completed_by_id"`
	CompletedByName string    `gorm:"type:varchar(200);column:completed_by_name"`
	Notes           string    `gorm:"type:text"`
	CompletedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;column:completed_at"`
}

// TableName overrides the default table name to match the migration
func (StageLog) TableName() string {
	return "stage_logs"
}

// BeforeCreate assigns a UUID when the caller has not set one
func (l *StageLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// UserRole classifies directory users for assignment pickers
type UserRole string

const (
	UserRoleFabricator UserRole = "fabricator"
	UserRoleInstaller  UserRole = "installer"
	UserRolePlanner    UserRole = "planner"
	UserRoleAdmin      UserRole = "admin"
)

// User is a minimal directory entry. Orders hold weak references to users;
// ownership of user data lies with the directory, not the order.
type User struct {
	BaseModel
	DisplayName string   `gorm:"type:varchar(200);not null;column:display_name"`
	Email       string   `gorm:"type:varchar(255);uniqueIndex"`
	Phone       string   `gorm:"type:varchar(50)"`
	Role        UserRole `gorm:"type:varchar(50);not null;index"`
	IsActive    bool     `gorm:"not null;default:true;column:is_active"`
}

// ChallanEventType distinguishes outbound dispatches from returns
type ChallanEventType string

const (
	ChallanEventDispatch ChallanEventType = "dispatch"
	ChallanEventReturn   ChallanEventType = "return"
)

// ChallanEvent is the external collaborator input that advances shipped
// quantity. Events are consumed by the aggregator, never stored by this core.
type ChallanEvent struct {
	OrderID    uuid.UUID
	EventID    string // challan number from the source system, if known
	Type       ChallanEventType
	Quantity   float64
	OccurredAt time.Time
}

// BoardColumn is a kanban bucket derived from delivery status
type BoardColumn string

const (
	BoardColumnPending  BoardColumn = "pending"
	BoardColumnPartial  BoardColumn = "partial"
	BoardColumnComplete BoardColumn = "complete"
)

// BoardColumns returns the columns in display order.
func BoardColumns() []BoardColumn {
	return []BoardColumn{BoardColumnPending, BoardColumnPartial, BoardColumnComplete}
}
