package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/techhind/fulfillment-api/internal/domain"
	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// BoardFilters narrows the candidate order set supplied to the board.
// Pre-filtering (date range, warehouse, customer) happens here; the board
// itself only classifies and ranks whatever set it is given.
type BoardFilters struct {
	CustomerID      *uuid.UUID
	WarehouseID     *uuid.UUID
	PlannedAfter    *time.Time
	PlannedBefore   *time.Time
	IncludeFinished bool
}

// Create inserts a new order
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// GetByID loads an order by its id
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetByOrderNumber loads an order by its external number
func (r *OrderRepository) GetByOrderNumber(ctx context.Context, number string) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).First(&order, "order_number = ?", number).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Update persists the full order record
func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// ListForBoard returns the candidate set for the kanban board, applying the
// supplied pre-filters. Cancelled orders never appear on the board; orders
// past their terminal stage appear only when IncludeFinished is set.
func (r *OrderRepository) ListForBoard(ctx context.Context, filters *BoardFilters) ([]domain.Order, error) {
	query := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("is_cancelled = ?", false).
		Order("created_at ASC")

	if filters != nil {
		if filters.CustomerID != nil {
			query = query.Where("customer_id = ?", *filters.CustomerID)
		}
		if filters.WarehouseID != nil {
			query = query.Where("warehouse_id = ?", *filters.WarehouseID)
		}
		if filters.PlannedAfter != nil {
			query = query.Where("planned_delivery_date >= ?", *filters.PlannedAfter)
		}
		if filters.PlannedBefore != nil {
			query = query.Where("planned_delivery_date <= ?", *filters.PlannedBefore)
		}
		if !filters.IncludeFinished {
			query = query.Where("current_stage_key IS NOT NULL")
		}
	} else {
		query = query.Where("current_stage_key IS NOT NULL")
	}

	var orders []domain.Order
	err := query.Find(&orders).Error
	return orders, err
}

// CountByDeliveryStatus returns order counts grouped by delivery status
func (r *OrderRepository) CountByDeliveryStatus(ctx context.Context) (map[domain.DeliveryStatus]int64, error) {
	type row struct {
		DeliveryStatus domain.DeliveryStatus
		Count          int64
	}
	var rows []row

	err := r.db.WithContext(ctx).Model(&domain.Order{}).
		Select("delivery_status, COUNT(*) as count").
		Where("is_cancelled = ?", false).
		Group("delivery_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.DeliveryStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.DeliveryStatus] = r.Count
	}
	return counts, nil
}

// MarkCancelled freezes an order out of fulfillment tracking
func (r *OrderRepository) MarkCancelled(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ?", id).
		Update("is_cancelled", true).Error
}
