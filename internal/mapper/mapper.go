// Package mapper converts domain models to API DTOs.
package mapper

import (
	"github.com/google/uuid"
	"github.com/techhind/fulfillment-api/internal/domain"
	"github.com/techhind/fulfillment-api/internal/kanban"
)

// ToOrderDTO maps an order to its API representation. userNames is an
// optional id-to-display-name lookup used to decorate assignee references.
func ToOrderDTO(order *domain.Order, userNames map[uuid.UUID]string) domain.OrderDTO {
	dto := domain.OrderDTO{
		ID:                         order.ID,
		OrderNumber:                order.OrderNumber,
		CustomerID:                 order.CustomerID,
		CustomerName:               order.CustomerName,
		WarehouseID:                order.WarehouseID,
		Stages:                     toStageStates(order),
		StageData:                  order.StageData,
		CurrentStageKey:            order.CurrentStageKey,
		FabricatorInstallerAreSame: order.FabricatorInstallerAreSame,
		FabricatorID:               order.FabricatorID,
		InstallerID:                order.InstallerID,
		TotalRequired:              order.TotalRequired,
		TotalShipped:               order.TotalShipped,
		TotalPending:               order.TotalPending,
		DeliveryStatus:             order.DeliveryStatus,
		LastChallanDate:            order.LastChallanDate,
		ChallanCount:               order.ChallanCount,
		PlannedDeliveryDate:        order.PlannedDeliveryDate,
		PlannedPriority:            order.PlannedPriority,
		IsCancelled:                order.IsCancelled,
		BoardColumn:                kanban.Classify(order),
		CreatedAt:                  order.CreatedAt,
		UpdatedAt:                  order.UpdatedAt,
	}

	if order.FabricatorID != nil {
		dto.FabricatorName = userNames[*order.FabricatorID]
	}
	if order.InstallerID != nil {
		dto.InstallerName = userNames[*order.InstallerID]
	}
	return dto
}

// toStageStates expands the order's stage map against the registry so the
// response always lists every stage in pipeline order.
func toStageStates(order *domain.Order) []domain.StageStateDTO {
	defs := domain.Stages()
	states := make([]domain.StageStateDTO, len(defs))
	for i, def := range defs {
		states[i] = domain.StageStateDTO{
			Key:         def.Key,
			Label:       def.Label,
			Status:      order.Stages.Status(def.Key),
			Current:     order.CurrentStageKey != nil && *order.CurrentStageKey == def.Key,
			CompletedAt: order.StageCompletedAt(def.Key),
		}
	}
	return states
}

// ToStageLogDTO maps a stage completion audit record
func ToStageLogDTO(log *domain.StageLog) domain.StageLogDTO {
	return domain.StageLogDTO{
		ID:              log.ID,
		OrderID:         log.OrderID,
		Stage:           log.Stage,
		StageLabel:      domain.StageLabel(log.Stage),
		CompletedByID:   log.CompletedByID,
		CompletedByName: log.CompletedByName,
		Notes:           log.Notes,
		CompletedAt:     log.CompletedAt,
	}
}

// ToBoardCardDTO maps an order to its compact board representation
func ToBoardCardDTO(order *domain.Order, userNames map[uuid.UUID]string) domain.BoardCardDTO {
	card := domain.BoardCardDTO{
		ID:                  order.ID,
		OrderNumber:         order.OrderNumber,
		CustomerName:        order.CustomerName,
		CurrentStageKey:     order.CurrentStageKey,
		DeliveryStatus:      order.DeliveryStatus,
		TotalRequired:       order.TotalRequired,
		TotalShipped:        order.TotalShipped,
		TotalPending:        order.TotalPending,
		PlannedDeliveryDate: order.PlannedDeliveryDate,
		PlannedPriority:     order.PlannedPriority,
		LastChallanDate:     order.LastChallanDate,
	}

	if order.CurrentStageKey != nil {
		card.CurrentStageLabel = domain.StageLabel(*order.CurrentStageKey)
	}
	if order.FabricatorID != nil {
		card.FabricatorName = userNames[*order.FabricatorID]
	}
	if order.InstallerID != nil {
		card.InstallerName = userNames[*order.InstallerID]
	}
	return card
}

// ToBoardDTO maps a ranked board to its API representation
func ToBoardDTO(board *kanban.Board, userNames map[uuid.UUID]string) domain.BoardDTO {
	dto := domain.BoardDTO{
		Columns:   make(map[domain.BoardColumn][]domain.BoardCardDTO, len(board.Columns)),
		Summaries: make(map[domain.BoardColumn]domain.BoardColumnSummaryDTO, len(board.Summaries)),
	}

	for column, orders := range board.Columns {
		cards := make([]domain.BoardCardDTO, len(orders))
		for i := range orders {
			cards[i] = ToBoardCardDTO(&orders[i], userNames)
		}
		dto.Columns[column] = cards
	}

	for column, summary := range board.Summaries {
		dto.Summaries[column] = domain.BoardColumnSummaryDTO{
			OrderCount:    summary.OrderCount,
			TotalRequired: summary.TotalRequired,
			TotalShipped:  summary.TotalShipped,
			TotalPending:  summary.TotalPending,
		}
	}
	return dto
}
