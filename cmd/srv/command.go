package main

import "github.com/urfave/cli/v2"

func (s *srv) loadApp() {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to the TOML config file, environment variables override it",
		EnvVars: []string{"CONFIG_PATH"},
	}

	s.app = cli.NewApp()
	s.app.Action = cli.ShowAppHelp
	s.app.Name = "Kizuna"
	s.app.Usage = "Kizuna authentication backend"
	s.app.Flags = []cli.Flag{configFlag}
	s.app.Before = s.loadConfig
	s.app.Commands = []*cli.Command{
		{
			Action:      s.startApi,
			Name:        "api",
			Usage:       "Start service api",
			Category:    "Api",
			Description: `Serve the OAuth2, account and health apis, and sweep expired OAuth2 states in background.`,
		},
		{
			Action:      s.startMigrate,
			Name:        "migrate",
			Usage:       "Migrate the database",
			Category:    "Database",
			Description: `Run every migration which has not been applied yet.`,
		},
		{
			Action:      s.startSweep,
			Name:        "sweep",
			Usage:       "Delete expired OAuth2 states once",
			Category:    "Worker",
			Description: `Run the OAuth2 state sweeper once, e.g. from an external scheduler.`,
		},
	}
}
