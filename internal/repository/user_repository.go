package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/techhind/fulfillment-api/internal/domain"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID loads a directory user
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// DisplayNamesByID resolves a batch of user ids to display names.
// Unknown ids are simply absent from the result; orders hold weak references
// and must render without directory data.
func (r *UserRepository) DisplayNamesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	var users []domain.User
	err := r.db.WithContext(ctx).
		Select("id, display_name").
		Where("id IN ?", ids).
		Find(&users).Error
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		names[u.ID] = u.DisplayName
	}
	return names, nil
}

// ListByRole returns active users with the given role, for assignment pickers
func (r *UserRepository) ListByRole(ctx context.Context, role domain.UserRole) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", role, true).
		Order("display_name ASC").
		Find(&users).Error
	return users, err
}
