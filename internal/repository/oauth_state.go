package repository

import (
	"context"
	"time"

	"github.com/kizuna-social/backend/internal/entity"
	"github.com/kizuna-social/backend/pkg/xcontext"
)

type OAuthStateRepository interface {
	Create(ctx context.Context, data *entity.OAuthState) error
	Get(ctx context.Context, state string) (*entity.OAuthState, error)

	// Delete returns the number of deleted rows. Concurrent callers deleting the same state
	// observe exactly one deletion.
	Delete(ctx context.Context, state string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type oauthStateRepository struct{}

func NewOAuthStateRepository() *oauthStateRepository {
	return &oauthStateRepository{}
}

func (r *oauthStateRepository) Create(ctx context.Context, data *entity.OAuthState) error {
	return xcontext.DB(ctx).Create(data).Error
}

func (r *oauthStateRepository) Get(ctx context.Context, state string) (*entity.OAuthState, error) {
	var result entity.OAuthState
	if err := xcontext.DB(ctx).Take(&result, "state=?", state).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *oauthStateRepository) Delete(ctx context.Context, state string) (int64, error) {
	tx := xcontext.DB(ctx).Delete(&entity.OAuthState{}, "state=?", state)
	return tx.RowsAffected, tx.Error
}

func (r *oauthStateRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tx := xcontext.DB(ctx).Delete(&entity.OAuthState{}, "expires_at<=?", now)
	return tx.RowsAffected, tx.Error
}
