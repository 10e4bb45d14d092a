package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/techhind/fulfillment-api/internal/domain"
	"github.com/techhind/fulfillment-api/internal/service"
	"go.uber.org/zap"
)

type OrderHandler struct {
	fulfillmentService *service.FulfillmentService
	logger             *zap.Logger
}

func NewOrderHandler(fulfillmentService *service.FulfillmentService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		fulfillmentService: fulfillmentService,
		logger:             logger,
	}
}

// @Summary Get order
// @Description Get an order with its stage pipeline, delivery metrics and board column
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.OrderDTO
// @Failure 404 {object} domain.APIError
// @Router /orders/{id} [get]
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	order, err := h.fulfillmentService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		h.logger.Error("failed to get order", zap.Error(err), zap.String("order_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to get order")
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// @Summary Complete a stage
// @Description Complete the order's current stage, or amend the fields of an already completed stage
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param stageKey path string true "Stage key"
// @Param request body domain.CompleteStageRequest true "Stage fields"
// @Success 200 {object} domain.OrderDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Router /orders/{id}/stages/{stageKey}/complete [post]
func (h *OrderHandler) CompleteStage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}
	stageKey := domain.StageKey(chi.URLParam(r, "stageKey"))

	var req domain.CompleteStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Fields == nil {
		req.Fields = map[string]string{}
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	order, err := h.fulfillmentService.AdvanceStage(r.Context(), id, stageKey, &req)
	if err != nil {
		h.respondStageError(w, id, stageKey, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) respondStageError(w http.ResponseWriter, id uuid.UUID, stageKey domain.StageKey, err error) {
	var (
		validationErr *service.ValidationError
		outOfOrderErr *service.OutOfOrderError
		terminalErr   *service.AlreadyTerminalError
	)

	switch {
	case errors.Is(err, service.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, service.ErrUnknownStage):
		respondWithError(w, http.StatusBadRequest, "Unknown stage key: "+string(stageKey))
	case errors.Is(err, service.ErrOrderCancelled):
		respondWithError(w, http.StatusConflict, "Order is cancelled")
	case errors.As(err, &validationErr):
		respondFieldError(w, validationErr.Field, validationErr.Error())
	case errors.As(err, &outOfOrderErr):
		respondWithError(w, http.StatusConflict, outOfOrderErr.Error())
	case errors.As(err, &terminalErr):
		respondWithError(w, http.StatusConflict, terminalErr.Error())
	default:
		h.logger.Error("failed to complete stage",
			zap.Error(err),
			zap.String("order_id", id.String()),
			zap.String("stage", string(stageKey)))
		respondWithError(w, http.StatusInternalServerError, "Failed to complete stage")
	}
}

// @Summary Get stage log
// @Description List stage completions for an order, newest first
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {array} domain.StageLogDTO
// @Failure 404 {object} domain.APIError
// @Router /orders/{id}/stage-log [get]
func (h *OrderHandler) GetStageLog(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	logs, err := h.fulfillmentService.GetStageLog(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get stage log", zap.Error(err), zap.String("order_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to get stage log")
		return
	}

	respondJSON(w, http.StatusOK, logs)
}

// @Summary Record a challan
// @Description Apply a dispatch or return challan to an order's delivery metrics
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body domain.RecordChallanRequest true "Challan event"
// @Success 200 {object} domain.OrderDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /orders/{id}/challans [post]
func (h *OrderHandler) RecordChallan(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var req domain.RecordChallanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	event := domain.ChallanEvent{
		OrderID:    id,
		EventID:    req.EventID,
		Type:       domain.ChallanEventType(req.Type),
		Quantity:   req.Quantity,
		OccurredAt: req.OccurredAt,
	}

	order, err := h.fulfillmentService.RecordChallan(r.Context(), id, event)
	if err != nil {
		var deltaErr *service.InvalidDeltaError
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondWithError(w, http.StatusNotFound, "Order not found")
		case errors.As(err, &deltaErr):
			respondFieldError(w, "quantity", deltaErr.Error())
		default:
			h.logger.Error("failed to record challan",
				zap.Error(err),
				zap.String("order_id", id.String()))
			respondWithError(w, http.StatusInternalServerError, "Failed to record challan")
		}
		return
	}

	respondJSON(w, http.StatusOK, order)
}
