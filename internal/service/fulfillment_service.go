package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/techhind/fulfillment-api/internal/domain"
	"github.com/techhind/fulfillment-api/internal/kanban"
	"github.com/techhind/fulfillment-api/internal/mapper"
	"github.com/techhind/fulfillment-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FulfillmentService composes the stage engine, delivery metrics aggregator
// and kanban board behind the use cases the admin UI consumes.
//
// AdvanceStage and RecordChallan read-then-write one order each; calls
// against the same order id are serialized through a keyed lock so the stage
// and delivery invariants hold under concurrent requests. Calls against
// different orders proceed in parallel.
type FulfillmentService struct {
	orderRepo    *repository.OrderRepository
	stageLogRepo *repository.StageLogRepository
	userRepo     *repository.UserRepository
	logger       *zap.Logger
	db           *gorm.DB

	mu         sync.Mutex
	orderLocks map[uuid.UUID]*sync.Mutex
}

func NewFulfillmentService(
	orderRepo *repository.OrderRepository,
	stageLogRepo *repository.StageLogRepository,
	userRepo *repository.UserRepository,
	logger *zap.Logger,
	db *gorm.DB,
) *FulfillmentService {
	return &FulfillmentService{
		orderRepo:    orderRepo,
		stageLogRepo: stageLogRepo,
		userRepo:     userRepo,
		logger:       logger,
		db:           db,
		orderLocks:   make(map[uuid.UUID]*sync.Mutex),
	}
}

// lockOrder returns the mutex serializing mutations for one order id
func (s *FulfillmentService) lockOrder(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.orderLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.orderLocks[id] = lock
	}
	return lock
}

// AdvanceStage completes (or amends) a stage on an order and returns the
// updated order, re-classified for the board. Stage advancement never changes
// delivery status, but callers refresh both in one call.
func (s *FulfillmentService) AdvanceStage(ctx context.Context, orderID uuid.UUID, stageKey domain.StageKey, req *domain.CompleteStageRequest) (*domain.OrderDTO, error) {
	lock := s.lockOrder(orderID)
	lock.Lock()
	defer lock.Unlock()

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	assignees := domain.AssigneeContext{SameAssignee: req.FabricatorInstallerAreSame}
	now := time.Now().UTC()

	advanced, err := CompleteStage(order, stageKey, req.Fields, assignees, now)
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	if advanced {
		if err := s.stageLogRepo.RecordCompletion(ctx, order.ID, stageKey, req.CompletedByID, req.CompletedByName, req.Notes, now); err != nil {
			s.logger.Warn("failed to record stage completion",
				zap.Error(err),
				zap.String("order_id", order.ID.String()),
				zap.String("stage", string(stageKey)))
		}
		s.logger.Info("stage completed",
			zap.String("order_id", order.ID.String()),
			zap.String("order_number", order.OrderNumber),
			zap.String("stage", string(stageKey)))
	} else {
		s.logger.Info("completed stage amended",
			zap.String("order_id", order.ID.String()),
			zap.String("stage", string(stageKey)))
	}

	dto := s.toOrderDTO(ctx, order)
	return &dto, nil
}

// RecordChallan applies a challan event to an order's delivery metrics and
// returns the updated order, re-classified since its column may have changed.
func (s *FulfillmentService) RecordChallan(ctx context.Context, orderID uuid.UUID, event domain.ChallanEvent) (*domain.OrderDTO, error) {
	lock := s.lockOrder(orderID)
	lock.Lock()
	defer lock.Unlock()

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	previousStatus := order.DeliveryStatus
	if err := ApplyChallanEvent(order, event); err != nil {
		return nil, err
	}

	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	if order.DeliveryStatus != previousStatus {
		s.logger.Info("delivery status changed",
			zap.String("order_id", order.ID.String()),
			zap.String("order_number", order.OrderNumber),
			zap.String("from", string(previousStatus)),
			zap.String("to", string(order.DeliveryStatus)),
			zap.Float64("total_shipped", order.TotalShipped))
	}

	dto := s.toOrderDTO(ctx, order)
	return &dto, nil
}

// GetByID returns one order with its board classification
func (s *FulfillmentService) GetByID(ctx context.Context, orderID uuid.UUID) (*domain.OrderDTO, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	dto := s.toOrderDTO(ctx, order)
	return &dto, nil
}

// GetStageLog returns the stage completion audit trail for an order
func (s *FulfillmentService) GetStageLog(ctx context.Context, orderID uuid.UUID) ([]domain.StageLogDTO, error) {
	logs, err := s.stageLogRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stage log: %w", err)
	}

	dtos := make([]domain.StageLogDTO, len(logs))
	for i, log := range logs {
		dtos[i] = mapper.ToStageLogDTO(&log)
	}
	return dtos, nil
}

// GetBoard loads the candidate order snapshot, classifies every order into
// exactly one column and ranks each column. The snapshot is read-only; no
// order state is mutated.
func (s *FulfillmentService) GetBoard(ctx context.Context, filters *repository.BoardFilters) (*domain.BoardDTO, error) {
	orders, err := s.orderRepo.ListForBoard(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to load board candidates: %w", err)
	}

	board := kanban.BuildBoard(orders)
	names := s.assigneeNames(ctx, orders)

	dto := mapper.ToBoardDTO(board, names)
	return &dto, nil
}

// toOrderDTO maps an order with assignee display names resolved
func (s *FulfillmentService) toOrderDTO(ctx context.Context, order *domain.Order) domain.OrderDTO {
	names := s.assigneeNames(ctx, []domain.Order{*order})
	return mapper.ToOrderDTO(order, names)
}

// assigneeNames batch-resolves fabricator/installer display names. Lookup
// failures degrade to bare ids; orders hold weak references to the directory.
func (s *FulfillmentService) assigneeNames(ctx context.Context, orders []domain.Order) map[uuid.UUID]string {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for i := range orders {
		for _, id := range []*uuid.UUID{orders[i].FabricatorID, orders[i].InstallerID} {
			if id != nil && !seen[*id] {
				seen[*id] = true
				ids = append(ids, *id)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}

	names, err := s.userRepo.DisplayNamesByID(ctx, ids)
	if err != nil {
		s.logger.Warn("failed to resolve assignee names", zap.Error(err))
		return nil
	}
	return names
}
