package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/techhind/fulfillment-api/internal/domain"
	"gorm.io/gorm"
)

type StageLogRepository struct {
	db *gorm.DB
}

func NewStageLogRepository(db *gorm.DB) *StageLogRepository {
	return &StageLogRepository{db: db}
}

// Create records a new stage completion
func (r *StageLogRepository) Create(ctx context.Context, log *domain.StageLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// GetByOrderID returns all stage completions for an order, newest first
func (r *StageLogRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]domain.StageLog, error) {
	var logs []domain.StageLog
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("completed_at DESC").
		Find(&logs).Error
	return logs, err
}

// GetLatestByOrderID returns the most recent stage completion for an order
func (r *StageLogRepository) GetLatestByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.StageLog, error) {
	var log domain.StageLog
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("completed_at DESC").
		First(&log).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// CountCompletionsByStage returns completion counts per stage within a date range
func (r *StageLogRepository) CountCompletionsByStage(ctx context.Context, from, to time.Time) (map[domain.StageKey]int64, error) {
	type row struct {
		Stage domain.StageKey
		Count int64
	}
	var rows []row

	err := r.db.WithContext(ctx).Model(&domain.StageLog{}).
		Select("stage, COUNT(*) as count").
		Where("completed_at >= ? AND completed_at <= ?", from, to).
		Group("stage").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.StageKey]int64, len(rows))
	for _, r := range rows {
		counts[r.Stage] = r.Count
	}
	return counts, nil
}

// RecordCompletion is a convenience method to create a stage log record
func (r *StageLogRepository) RecordCompletion(
	ctx context.Context,
	orderID uuid.UUID,
	stage domain.StageKey,
	completedByID string,
	completedByName string,
	notes string,
	at time.Time,
) error {
	log := &domain.StageLog{
		OrderID:         orderID,
		Stage:           stage,
		CompletedByID:   completedByID,
		CompletedByName: completedByName,
		Notes:           notes,
		CompletedAt:     at,
	}
	return r.Create(ctx, log)
}

// DeleteByOrderID removes all log entries for an order (used when an order is deleted upstream)
func (r *StageLogRepository) DeleteByOrderID(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&domain.StageLog{}).Error
}
