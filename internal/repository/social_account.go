package repository

import (
	"context"

	"github.com/kizuna-social/backend/internal/entity"
	"github.com/kizuna-social/backend/pkg/xcontext"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SocialAccountRepository interface {
	Create(ctx context.Context, data *entity.SocialAccount) error
	GetByProviderUserID(ctx context.Context, provider, providerUserID string) (*entity.SocialAccount, error)
	GetByUserIDAndProvider(ctx context.Context, userID, provider string) (*entity.SocialAccount, error)
	GetAllByUserID(ctx context.Context, userID string) ([]entity.SocialAccount, error)
	UpdateTokensByID(ctx context.Context, id string, data *entity.SocialAccount) error
	DeleteByUserIDAndProvider(ctx context.Context, userID, provider string) error
}

type socialAccountRepository struct{}

func NewSocialAccountRepository() *socialAccountRepository {
	return &socialAccountRepository{}
}

func (r *socialAccountRepository) Create(ctx context.Context, data *entity.SocialAccount) error {
	return xcontext.DB(ctx).Omit(clause.Associations).Create(data).Error
}

func (r *socialAccountRepository) GetByProviderUserID(
	ctx context.Context, provider, providerUserID string,
) (*entity.SocialAccount, error) {
	var result entity.SocialAccount
	err := xcontext.DB(ctx).
		Take(&result, "provider=? AND provider_user_id=?", provider, providerUserID).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *socialAccountRepository) GetByUserIDAndProvider(
	ctx context.Context, userID, provider string,
) (*entity.SocialAccount, error) {
	var result entity.SocialAccount
	err := xcontext.DB(ctx).Take(&result, "user_id=? AND provider=?", userID, provider).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *socialAccountRepository) GetAllByUserID(ctx context.Context, userID string) ([]entity.SocialAccount, error) {
	var result []entity.SocialAccount
	err := xcontext.DB(ctx).Order("linked_at ASC").Find(&result, "user_id=?", userID).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateTokensByID stores the latest provider tokens and cached profile fields. An empty
// refresh token keeps the stored one.
func (r *socialAccountRepository) UpdateTokensByID(ctx context.Context, id string, data *entity.SocialAccount) error {
	updateMap := map[string]any{
		"access_token":     data.AccessToken,
		"token_expires_at": data.TokenExpiresAt,
	}

	if data.RefreshToken != "" {
		updateMap["refresh_token"] = data.RefreshToken
	}

	if data.Email != "" {
		updateMap["email"] = data.Email
	}

	if data.Name != "" {
		updateMap["name"] = data.Name
	}

	if data.Avatar != "" {
		updateMap["avatar"] = data.Avatar
	}

	tx := xcontext.DB(ctx).Model(&entity.SocialAccount{}).Where("id=?", id).Updates(updateMap)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *socialAccountRepository) DeleteByUserIDAndProvider(ctx context.Context, userID, provider string) error {
	tx := xcontext.DB(ctx).Delete(&entity.SocialAccount{}, "user_id=? AND provider=?", userID, provider)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
