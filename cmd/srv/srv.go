package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kizuna-social/backend/config"
	"github.com/kizuna-social/backend/internal/domain"
	"github.com/kizuna-social/backend/internal/domain/oauthstate"
	"github.com/kizuna-social/backend/internal/repository"
	"github.com/kizuna-social/backend/pkg/authenticator"
	"github.com/kizuna-social/backend/pkg/logger"
	"github.com/kizuna-social/backend/pkg/router"
	"github.com/kizuna-social/backend/pkg/token"
	"github.com/kizuna-social/backend/pkg/xcontext"
	"github.com/kizuna-social/backend/pkg/xredis"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type srv struct {
	app *cli.App
	ctx context.Context

	userRepo          repository.UserRepository
	socialAccountRepo repository.SocialAccountRepository
	oauthStateRepo    repository.OAuthStateRepository

	redisClient xredis.Client
	stateStore  oauthstate.Store
	providers   *authenticator.Registry

	oauth2Domain domain.OAuth2Domain
	authDomain   domain.AuthDomain
	healthDomain domain.HealthDomain

	router *router.Router
	server *http.Server
}

func (s *srv) loadConfig(cctx *cli.Context) error {
	cfg, err := config.Load(cctx.String("config"))
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	s.ctx = context.Background()
	s.ctx = xcontext.WithConfigs(s.ctx, cfg)
	s.ctx = xcontext.WithLogger(s.ctx, logger.NewLogger(logger.ParseLevel(cfg.LogLevel)))
	s.ctx = xcontext.WithTokenEngine(s.ctx, token.NewEngine(cfg.Auth.TokenSecret))
	s.ctx = xcontext.WithHTTPClient(s.ctx, &http.Client{Timeout: cfg.Auth.ProviderTimeout})
	return nil
}

func (s *srv) newDatabase() (*gorm.DB, error) {
	cfg := xcontext.Configs(s.ctx).Database

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.New(mysql.Config{
			DSN:                       cfg.ConnectionString(),
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		})
	case "sqlite":
		dialector = sqlite.Open(cfg.ConnectionString())
	default:
		return nil, fmt.Errorf("invalid database driver %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if cfg.Driver == "sqlite" {
		// sqlite serializes writers, a single connection avoids "database is locked".
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

func (s *srv) loadDatabase() error {
	db, err := s.newDatabase()
	if err != nil {
		return err
	}

	s.ctx = xcontext.WithDB(s.ctx, db)
	return nil
}

func (s *srv) loadRepos() {
	s.userRepo = repository.NewUserRepository()
	s.socialAccountRepo = repository.NewSocialAccountRepository()
	s.oauthStateRepo = repository.NewOAuthStateRepository()
}

func (s *srv) loadStateStore() error {
	switch backend := xcontext.Configs(s.ctx).OAuthState.Backend; backend {
	case "redis":
		redisClient, err := xredis.NewClient(s.ctx)
		if err != nil {
			return err
		}

		s.redisClient = redisClient
		s.stateStore = oauthstate.NewRedisStore(redisClient)
	case "db":
		s.stateStore = oauthstate.NewDBStore(s.oauthStateRepo)
	default:
		return fmt.Errorf("invalid oauth state backend %s", backend)
	}

	return nil
}

func (s *srv) loadProviders() error {
	// OIDC discovery must not hang the startup.
	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()

	providers, err := authenticator.NewRegistryFromConfig(ctx, xcontext.Configs(s.ctx).Auth)
	if err != nil {
		return err
	}

	s.providers = providers
	xcontext.Logger(s.ctx).Infof("Enabled OAuth2 providers: %v", providers.Names())
	return nil
}

func (s *srv) loadDomains() {
	s.oauth2Domain = domain.NewOAuth2Domain(s.userRepo, s.socialAccountRepo, s.stateStore, s.providers)
	s.authDomain = domain.NewAuthDomain(s.userRepo, s.socialAccountRepo)
	s.healthDomain = domain.NewHealthDomain(s.redisClient)
}
