package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/kizuna-social/backend/internal/domain/cron"
	"github.com/kizuna-social/backend/internal/middleware"
	"github.com/kizuna-social/backend/pkg/prometheus"
	"github.com/kizuna-social/backend/pkg/router"
	"github.com/kizuna-social/backend/pkg/xcontext"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/cors"
	"github.com/urfave/cli/v2"
)

func (s *srv) startApi(*cli.Context) error {
	if err := s.loadDatabase(); err != nil {
		return err
	}

	s.loadRepos()
	if err := s.loadStateStore(); err != nil {
		return err
	}

	if err := s.loadProviders(); err != nil {
		return err
	}

	s.loadDomains()
	if err := s.loadRouter(); err != nil {
		return err
	}

	cfg := xcontext.Configs(s.ctx)
	s.server = &http.Server{
		Addr:         cfg.ApiServer.Address(),
		Handler:      s.withCORS(s.router.Handler()),
		ReadTimeout:  cfg.ApiServer.ReadTimeout,
		WriteTimeout: cfg.ApiServer.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(s.ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronJobManager := cron.NewCronJobManager()
	cronJobManager.Register(cron.NewSweepOAuthStateCronJob(
		s.stateStore, cfg.OAuthState.Backend, cfg.Cron.StateSweepInterval))
	go cronJobManager.Start(s.ctx)

	go func() {
		<-ctx.Done()
		cronJobManager.Cancel(s.ctx)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			xcontext.Logger(s.ctx).Errorf("Cannot shutdown server: %v", err)
		}
	}()

	xcontext.Logger(s.ctx).Infof("Starting server on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	xcontext.Logger(s.ctx).Infof("Server stopped")
	return nil
}

func (s *srv) loadRouter() error {
	sqlDB, err := xcontext.DB(s.ctx).DB()
	if err != nil {
		return err
	}

	s.router = router.New(xcontext.DB(s.ctx), xcontext.Configs(s.ctx), xcontext.Logger(s.ctx))
	s.router.Before(middleware.WithStartTime())
	s.router.AddCloser(middleware.Logger())
	s.router.AddCloser(middleware.Prometheus())

	// OAuth2 browser flow. The session must be saved before the redirect is written.
	oauth2Router := s.router.Branch()
	oauth2Router.After(middleware.HandleSaveSession())
	oauth2Router.After(middleware.HandleRedirect())
	{
		router.GET(oauth2Router, "/oauth/authorize/{provider}", s.oauth2Domain.Authorize)
		router.GET(oauth2Router, "/oauth/callback/{provider}", s.oauth2Domain.Callback)
	}

	// Public APIs which may hand out an access token.
	authRouter := s.router.Branch()
	authRouter.After(middleware.HandleSetAccessToken())
	{
		router.POST(authRouter, "/oauth/exchange", s.oauth2Domain.Exchange)
		router.POST(authRouter, "/auth/sign-up", s.authDomain.SignUp)
		router.POST(authRouter, "/auth/sign-in", s.authDomain.SignIn)
		router.POST(authRouter, "/auth/sign-out", s.authDomain.SignOut)
	}

	// These following APIs need an access token.
	onlyTokenAuthRouter := s.router.Branch()
	onlyTokenAuthRouter.Before(middleware.Authenticate())
	{
		router.GET(onlyTokenAuthRouter, "/oauth/linked", s.oauth2Domain.GetLinkedAccounts)
		router.DELETE(onlyTokenAuthRouter, "/oauth/unlink/{provider}", s.oauth2Domain.Unlink)
		router.POST(onlyTokenAuthRouter, "/oauth/refresh/{provider}", s.oauth2Domain.RefreshProviderToken)
		router.GET(onlyTokenAuthRouter, "/auth/me", s.authDomain.GetMe)
	}

	// Public API.
	router.GET(s.router, "/oauth/providers", s.oauth2Domain.GetProviders)
	router.GET(s.router, "/health", s.healthDomain.Health)

	s.router.Handle("GET /metrics", prometheus.NewHandler(collectors.NewDBStatsCollector(sqlDB, "kizuna")))
	return nil
}

func (s *srv) withCORS(handler http.Handler) http.Handler {
	cfg := xcontext.Configs(s.ctx).ApiServer
	if len(cfg.AllowedOrigins) == 0 {
		return handler
	}

	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(handler)
}
