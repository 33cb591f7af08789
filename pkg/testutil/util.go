package testutil

import (
	"context"
	"net/http"
	"time"

	"github.com/kizuna-social/backend/config"
	"github.com/kizuna-social/backend/migration"
	"github.com/kizuna-social/backend/pkg/logger"
	"github.com/kizuna-social/backend/pkg/session"
	"github.com/kizuna-social/backend/pkg/token"
	"github.com/kizuna-social/backend/pkg/xcontext"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewMockContext returns a context carrying the test configs and an empty in-memory database.
func NewMockContext() context.Context {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Discard,
	})
	if err != nil {
		panic(err)
	}

	// Each connection of ":memory:" is a different database.
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := config.Configs{
		Env: "local",
		Auth: config.AuthConfigs{
			TokenSecret: "secret",
			AccessToken: config.TokenConfigs{
				Name:       "access_token",
				Expiration: time.Minute,
			},
			FrontendURL:     "http://localhost:3000/auth/callback",
			ProviderTimeout: 5 * time.Second,
		},
		Session: config.SessionConfigs{
			Name:   "kizuna_session",
			Secret: "session-secret",
		},
		OAuthState: config.OAuthStateConfigs{
			Backend: "db",
			TTL:     10 * time.Minute,
		},
	}

	ctx := context.Background()
	ctx = xcontext.WithConfigs(ctx, cfg)
	ctx = xcontext.WithLogger(ctx, logger.NewLogger(logger.SILENCE))
	ctx = xcontext.WithTokenEngine(ctx, token.NewEngine(cfg.Auth.TokenSecret))
	ctx = xcontext.WithSessionStore(ctx, session.NewCookieStore(cfg.Session.Name, false, []byte(cfg.Session.Secret)))
	ctx = xcontext.WithHTTPClient(ctx, &http.Client{Timeout: cfg.Auth.ProviderTimeout})
	ctx = xcontext.WithDB(ctx, db)

	if err := migration.AutoMigrate(ctx); err != nil {
		panic(err)
	}

	return ctx
}

func MockContextWithUserID(ctx context.Context, userID string) context.Context {
	return xcontext.WithRequestUserID(ctx, userID)
}
