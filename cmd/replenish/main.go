package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/andresuchdata/autopo-replenish/internal/config"
	"github.com/andresuchdata/autopo-replenish/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const configKey = "config"

func main() {
	app := &cli.App{
		Name:  "replenish",
		Usage: "Demand forecasting and replenishment engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Usage:   "Dotenv file loaded before configuration",
				Value:   ".env",
				EnvVars: []string{"REPLENISH_ENV_FILE"},
			},
			&cli.BoolFlag{
				Name:  "json-logs",
				Usage: "Emit one JSON object per log line",
			},
		},
		Before: loadConfig,
		Commands: []*cli.Command{
			serveCommand(),
			evaluateCommand(),
			migrateCommand(),
			seedCommand(),
			archiveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("replenish failed")
	}
}

func loadConfig(c *cli.Context) error {
	if err := godotenv.Load(c.String("env-file")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Str("file", c.String("env-file")).Msg("could not load env file")
	}

	cfg := config.Load()
	logger.Setup(os.Stderr, cfg.LogLevel, c.Bool("json-logs"))

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

func configFrom(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[configKey].(*config.Config); ok {
		return cfg
	}
	return config.Load()
}

func newSQLiteFlag(usage string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "sqlite",
		Usage:   usage,
		EnvVars: []string{"REPLENISH_SQLITE_PATH"},
	}
}
