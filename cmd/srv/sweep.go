package main

import (
	"github.com/kizuna-social/backend/internal/domain/cron"
	"github.com/kizuna-social/backend/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startSweep(*cli.Context) error {
	if err := s.loadDatabase(); err != nil {
		return err
	}

	s.loadRepos()
	if err := s.loadStateStore(); err != nil {
		return err
	}

	cfg := xcontext.Configs(s.ctx)
	cron.NewSweepOAuthStateCronJob(s.stateStore, cfg.OAuthState.Backend, cfg.Cron.StateSweepInterval).Do(s.ctx)
	return nil
}
