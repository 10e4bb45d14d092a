package domain

import (
	"time"

	"github.com/google/uuid"
)

// AssigneeContext carries the fabricator/installer toggle into stage
// completion so the required-field substitution rule is enforced uniformly
// regardless of caller.
type AssigneeContext struct {
	SameAssignee bool
}

// CompleteStageRequest is the payload for completing (or amending) a stage
type CompleteStageRequest struct {
	Fields                     map[string]string `json:"fields" validate:"required"`
	FabricatorInstallerAreSame bool              `json:"fabricatorInstallerAreSame"`
	CompletedByID              string            `json:"completedById" validate:"omitempty,max=100"`
	CompletedByName            string            `json:"completedByName" validate:"omitempty,max=200"`
	Notes                      string            `json:"notes" validate:"omitempty,max=2000"`
}

// RecordChallanRequest is the payload for applying a challan event to an order
type RecordChallanRequest struct {
	EventID    string    `json:"eventId" validate:"omitempty,max=100"`
	Type       string    `json:"type" validate:"omitempty,oneof=dispatch return"`
	Quantity   float64   `json:"quantity"`
	OccurredAt time.Time `json:"occurredAt" validate:"required"`
}

// StageStateDTO describes one registry stage as it applies to an order
type StageStateDTO struct {
	Key         StageKey    `json:"key"`
	Label       string      `json:"label"`
	Status      StageStatus `json:"status"`
	Current     bool        `json:"current"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
}

// OrderDTO is the API representation of a tracked order
type OrderDTO struct {
	ID                         uuid.UUID         `json:"id"`
	OrderNumber                string            `json:"orderNumber"`
	CustomerID                 uuid.UUID         `json:"customerId"`
	CustomerName               string            `json:"customerName,omitempty"`
	WarehouseID                *uuid.UUID        `json:"warehouseId,omitempty"`
	Stages                     []StageStateDTO   `json:"stages"`
	StageData                  map[string]string `json:"stageData,omitempty"`
	CurrentStageKey            *StageKey         `json:"currentStageKey,omitempty"`
	FabricatorInstallerAreSame bool              `json:"fabricatorInstallerAreSame"`
	FabricatorID               *uuid.UUID        `json:"fabricatorId,omitempty"`
	FabricatorName             string            `json:"fabricatorName,omitempty"`
	InstallerID                *uuid.UUID        `json:"installerId,omitempty"`
	InstallerName              string            `json:"installerName,omitempty"`
	TotalRequired              float64           `json:"totalRequired"`
	TotalShipped               float64           `json:"totalShipped"`
	TotalPending               float64           `json:"totalPending"`
	DeliveryStatus             DeliveryStatus    `json:"deliveryStatus"`
	LastChallanDate            *time.Time        `json:"lastChallanDate,omitempty"`
	ChallanCount               int               `json:"challanCount"`
	PlannedDeliveryDate        *time.Time        `json:"plannedDeliveryDate,omitempty"`
	PlannedPriority            string            `json:"plannedPriority,omitempty"`
	IsCancelled                bool              `json:"isCancelled"`
	BoardColumn                BoardColumn       `json:"boardColumn"`
	CreatedAt                  time.Time         `json:"createdAt"`
	UpdatedAt                  time.Time         `json:"updatedAt"`
}

// StageLogDTO is the API representation of a stage completion audit record
type StageLogDTO struct {
	ID              uuid.UUID `json:"id"`
	OrderID         uuid.UUID `json:"orderId"`
	Stage           StageKey  `json:"stage"`
	StageLabel      string    `json:"stageLabel"`
	CompletedByID   string    `json:"completedById,omitempty"`
	CompletedByName string    `json:"completedByName,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CompletedAt     time.Time `json:"completedAt"`
}

// BoardCardDTO is the compact order representation shown on the kanban board
type BoardCardDTO struct {
	ID                  uuid.UUID      `json:"id"`
	OrderNumber         string         `json:"orderNumber"`
	CustomerName        string         `json:"customerName,omitempty"`
	CurrentStageKey     *StageKey      `json:"currentStageKey,omitempty"`
	CurrentStageLabel   string         `json:"currentStageLabel,omitempty"`
	DeliveryStatus      DeliveryStatus `json:"deliveryStatus"`
	TotalRequired       float64        `json:"totalRequired"`
	TotalShipped        float64        `json:"totalShipped"`
	TotalPending        float64        `json:"totalPending"`
	PlannedDeliveryDate *time.Time     `json:"plannedDeliveryDate,omitempty"`
	PlannedPriority     string         `json:"plannedPriority,omitempty"`
	LastChallanDate     *time.Time     `json:"lastChallanDate,omitempty"`
	FabricatorName      string         `json:"fabricatorName,omitempty"`
	InstallerName       string         `json:"installerName,omitempty"`
}

// BoardColumnSummaryDTO carries the per-column header aggregates
type BoardColumnSummaryDTO struct {
	OrderCount    int     `json:"orderCount"`
	TotalRequired float64 `json:"totalRequired"`
	TotalShipped  float64 `json:"totalShipped"`
	TotalPending  float64 `json:"totalPending"`
}

// BoardDTO is the full kanban board response
type BoardDTO struct {
	Columns   map[BoardColumn][]BoardCardDTO        `json:"columns"`
	Summaries map[BoardColumn]BoardColumnSummaryDTO `json:"summaries"`
}
