package repository

import (
	"context"
	"database/sql"

	"github.com/kizuna-social/backend/internal/entity"
	"github.com/kizuna-social/backend/pkg/xcontext"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	Create(ctx context.Context, data *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByHandle(ctx context.Context, handle string) (*entity.User, error)
	ExistsHandle(ctx context.Context, handle string) (bool, error)
}

type userRepository struct{}

func NewUserRepository() *userRepository {
	return &userRepository{}
}

func (r *userRepository) Create(ctx context.Context, data *entity.User) error {
	return xcontext.DB(ctx).Omit(clause.Associations).Create(data).Error
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var record entity.User
	if err := xcontext.DB(ctx).Where("id=?", id).Take(&record).Error; err != nil {
		return nil, err
	}

	return &record, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var record entity.User
	err := xcontext.DB(ctx).
		Where("email=?", sql.NullString{String: email, Valid: true}).
		Take(&record).Error
	if err != nil {
		return nil, err
	}

	return &record, nil
}

func (r *userRepository) GetByHandle(ctx context.Context, handle string) (*entity.User, error) {
	var record entity.User
	if err := xcontext.DB(ctx).Where("handle=?", handle).Take(&record).Error; err != nil {
		return nil, err
	}

	return &record, nil
}

// ExistsHandle also counts soft deleted users, because the unique index still holds their
// handles.
func (r *userRepository) ExistsHandle(ctx context.Context, handle string) (bool, error) {
	var count int64
	err := xcontext.DB(ctx).Unscoped().Model(&entity.User{}).Where("handle=?", handle).Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}
