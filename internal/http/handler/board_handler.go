package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/techhind/fulfillment-api/internal/repository"
	"github.com/techhind/fulfillment-api/internal/service"
	"go.uber.org/zap"
)

type BoardHandler struct {
	fulfillmentService *service.FulfillmentService
	logger             *zap.Logger
}

func NewBoardHandler(fulfillmentService *service.FulfillmentService, logger *zap.Logger) *BoardHandler {
	return &BoardHandler{
		fulfillmentService: fulfillmentService,
		logger:             logger,
	}
}

// @Summary Get delivery board
// @Description Kanban board of active orders grouped by delivery status, ranked within each column
// @Tags Board
// @Produce json
// @Param customerId query string false "Filter by customer ID"
// @Param warehouseId query string false "Filter by warehouse ID"
// @Param plannedAfter query string false "Planned delivery after date (YYYY-MM-DD)"
// @Param plannedBefore query string false "Planned delivery before date (YYYY-MM-DD)"
// @Param includeFinished query bool false "Include orders past their terminal stage"
// @Success 200 {object} domain.BoardDTO
// @Router /board [get]
func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	filters := &repository.BoardFilters{}

	if cid := r.URL.Query().Get("customerId"); cid != "" {
		if id, err := uuid.Parse(cid); err == nil {
			filters.CustomerID = &id
		}
	}
	if wid := r.URL.Query().Get("warehouseId"); wid != "" {
		if id, err := uuid.Parse(wid); err == nil {
			filters.WarehouseID = &id
		}
	}
	if pa := r.URL.Query().Get("plannedAfter"); pa != "" {
		if t, err := time.Parse("2006-01-02", pa); err == nil {
			filters.PlannedAfter = &t
		}
	}
	if pb := r.URL.Query().Get("plannedBefore"); pb != "" {
		if t, err := time.Parse("2006-01-02", pb); err == nil {
			filters.PlannedBefore = &t
		}
	}
	if r.URL.Query().Get("includeFinished") == "true" {
		filters.IncludeFinished = true
	}

	board, err := h.fulfillmentService.GetBoard(r.Context(), filters)
	if err != nil {
		h.logger.Error("failed to build board", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to build board")
		return
	}

	respondJSON(w, http.StatusOK, board)
}
