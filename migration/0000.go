package migration

import (
	"context"

	"github.com/kizuna-social/backend/internal/entity"
	"github.com/kizuna-social/backend/pkg/xcontext"
)

// migrate0000 will create the database with the latest version.
func migrate0000(ctx context.Context) error {
	return xcontext.DB(ctx).AutoMigrate(
		&entity.User{},
		&entity.SocialAccount{},
		&entity.OAuthState{},
	)
}
