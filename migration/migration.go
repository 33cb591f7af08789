package migration

import (
	"context"

	"github.com/kizuna-social/backend/internal/entity"
	"github.com/kizuna-social/backend/pkg/xcontext"
)

type Migrator struct {
	Version string
	Migrate func(context.Context) error
}

// Migrators must be sorted by version.
var Migrators = []Migrator{
	{Version: "0000", Migrate: migrate0000},
}

// Migrate runs every migrator which has not been applied yet.
func Migrate(ctx context.Context) error {
	db := xcontext.DB(ctx)
	if err := db.AutoMigrate(&entity.Migration{}); err != nil {
		return err
	}

	var applied []entity.Migration
	if err := db.Find(&applied).Error; err != nil {
		return err
	}

	done := map[string]bool{}
	for _, m := range applied {
		done[m.Version] = true
	}

	for _, m := range Migrators {
		if done[m.Version] {
			continue
		}

		xcontext.Logger(ctx).Infof("Running migration %s", m.Version)
		if err := m.Migrate(ctx); err != nil {
			return err
		}

		if err := db.Create(&entity.Migration{Version: m.Version}).Error; err != nil {
			return err
		}
	}

	return nil
}
