// Command authcache runs the session cache engine's operational tasks:
// a metrics and JWKS endpoint, the inactive-session reaper and a load
// generator.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	if err := app().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func app() *cli.App {
	return &cli.App{
		Name:    "authcache",
		Usage:   "session cache engine tooling",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file",
				EnvVars: []string{"AUTHCACHE_CONFIG"},
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := loadConfig(c.String("config"))
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Environment)
			if err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			c.App.Metadata["config"] = cfg
			c.App.Metadata["logger"] = logger
			return nil
		},
		After: func(c *cli.Context) error {
			if logger, ok := c.App.Metadata["logger"].(*zap.Logger); ok {
				_ = logger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			reapCommand(),
			loadtestCommand(),
		},
	}
}

func configFrom(c *cli.Context) appConfig {
	cfg, _ := c.App.Metadata["config"].(appConfig)
	return cfg
}

func loggerFrom(c *cli.Context) *zap.Logger {
	if logger, ok := c.App.Metadata["logger"].(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}
