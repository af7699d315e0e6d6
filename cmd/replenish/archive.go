package main

import (
	"strings"

	"github.com/andresuchdata/autopo-replenish/internal/storage"
	"github.com/urfave/cli/v2"
)

func archiveCommand() *cli.Command {
	return &cli.Command{
		Name:      "archive",
		Usage:     "Print the archived approved plans of a SKU as YAML",
		ArgsUsage: "<sku>",
		Action:    runArchive,
	}
}

func runArchive(c *cli.Context) error {
	sku := strings.TrimSpace(c.Args().First())
	if sku == "" {
		return cli.Exit("archive needs a sku", 2)
	}

	cfg := configFrom(c)
	if !cfg.Storage.Enabled {
		return cli.Exit("object storage is disabled (set STORAGE_ENABLED=true)", 1)
	}

	client, err := storage.NewMinioClient(c.Context, minioConfig(cfg.Storage))
	if err != nil {
		return err
	}

	plans, err := storage.NewPlanArchiver(client, cfg.Storage.Prefix).ArchivedPlans(c.Context, sku)
	if err != nil {
		return err
	}
	return writeYAML(c.App.Writer, map[string]any{"sku": sku, "plans": plans})
}
