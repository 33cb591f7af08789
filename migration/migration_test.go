package migration

import (
	"context"
	"testing"

	"github.com/kizuna-social/backend/internal/entity"
	"github.com/kizuna-social/backend/pkg/xcontext"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMigrate(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	ctx := xcontext.WithDB(context.Background(), db)
	require.NoError(t, Migrate(ctx))

	// Running twice is a no-op.
	require.NoError(t, Migrate(ctx))

	var applied []entity.Migration
	require.NoError(t, db.Order("version").Find(&applied).Error)
	require.Len(t, applied, len(Migrators))
	require.Equal(t, "0000", applied[0].Version)

	require.True(t, db.Migrator().HasTable(&entity.User{}))
	require.True(t, db.Migrator().HasTable(&entity.SocialAccount{}))
	require.True(t, db.Migrator().HasTable(&entity.OAuthState{}))
	require.True(t, db.Migrator().HasIndex(&entity.SocialAccount{}, "idx_social_accounts_provider_user"))
}
