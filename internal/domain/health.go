package domain

import (
	"context"

	"github.com/kizuna-social/backend/internal/model"
	"github.com/kizuna-social/backend/pkg/errorx"
	"github.com/kizuna-social/backend/pkg/xcontext"
	"github.com/kizuna-social/backend/pkg/xredis"
)

type HealthDomain interface {
	Health(context.Context, *model.HealthRequest) (*model.HealthResponse, error)
}

type healthDomain struct {
	redisClient xredis.Client
}

// NewHealthDomain checks the database, and redis too when redisClient is not nil.
func NewHealthDomain(redisClient xredis.Client) HealthDomain {
	return &healthDomain{redisClient: redisClient}
}

func (d *healthDomain) Health(ctx context.Context, req *model.HealthRequest) (*model.HealthResponse, error) {
	sqlDB, err := xcontext.DB(ctx).DB()
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get database connection: %v", err)
		return nil, errorx.New(errorx.Unavailable, "Database is unavailable")
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot ping database: %v", err)
		return nil, errorx.New(errorx.Unavailable, "Database is unavailable")
	}

	resp := &model.HealthResponse{Status: "ok", Database: "ok"}
	if d.redisClient != nil {
		if err := d.redisClient.Ping(ctx); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot ping redis: %v", err)
			return nil, errorx.New(errorx.Unavailable, "Redis is unavailable")
		}

		resp.Redis = "ok"
	}

	return resp, nil
}
