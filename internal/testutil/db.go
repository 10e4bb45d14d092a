package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/techhind/fulfillment-api/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var orderSeq atomic.Int64

// SetupTestDB opens a fresh in-memory SQLite database and migrates the
// fulfillment schema into it. Every caller gets an isolated database, so
// tests need no cleanup between runs.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err, "failed to open in-memory test database")

	err = db.AutoMigrate(&domain.Order{}, &domain.StageLog{}, &domain.User{})
	require.NoError(t, err, "failed to migrate test schema")

	return db
}

// CreateTestOrder inserts an order with a unique order number and sensible
// tracking defaults, returning the persisted record.
func CreateTestOrder(t *testing.T, db *gorm.DB, mutate func(*domain.Order)) *domain.Order {
	t.Helper()

	first := domain.FirstStage()
	order := &domain.Order{
		OrderNumber:     fmt.Sprintf("ORD-%05d", orderSeq.Add(1)),
		CustomerID:      uuid.New(),
		CustomerName:    "Test Customer",
		Stages:          domain.StageStateMap{first: domain.StageStatusPending},
		StageData:       domain.StageFieldMap{},
		CurrentStageKey: &first,
		TotalRequired:   10,
		TotalPending:    10,
		DeliveryStatus:  domain.DeliveryStatusPending,
	}
	if mutate != nil {
		mutate(order)
	}

	require.NoError(t, db.Create(order).Error)
	return order
}

// CreateTestUser inserts a directory user for assignment lookups.
func CreateTestUser(t *testing.T, db *gorm.DB, name string, role domain.UserRole) *domain.User {
	t.Helper()

	user := &domain.User{
		DisplayName: name,
		Email:       fmt.Sprintf("%s@test.local", uuid.NewString()[:8]),
		Role:        role,
		IsActive:    true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
