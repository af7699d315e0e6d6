package main

import (
	"fmt"
	"os"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/andresuchdata/autopo-replenish/internal/repository/postgres"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// seedFixture is the YAML layout accepted by the seed command.
type seedFixture struct {
	Products  []domain.Product  `yaml:"products"`
	Movements []domain.Movement `yaml:"movements"`
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:      "seed",
		Usage:     "Load products and outbound history from a YAML fixture",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			newSQLiteFlag("Seed a SQLite file instead of Postgres"),
			&cli.StringFlag{
				Name:    "db-url",
				Usage:   "Postgres URL used for the bulk copy (defaults to the DB_* settings)",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.BoolFlag{
				Name:  "flush-cache",
				Usage: "Drop the whole history cache instead of only the touched SKUs",
			},
		},
		Action: runSeed,
	}
}

func runSeed(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("seed needs exactly one fixture file", 2)
	}

	fixture, err := readSeedFixture(c.Args().First())
	if err != nil {
		return err
	}

	cfg := configFrom(c)
	st, err := openStores(c.Context, cfg, c.String("sqlite"))
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.products.UpsertProducts(c.Context, fixture.Products); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	if st.sqlite {
		if err := st.history.RecordMovements(c.Context, fixture.Movements); err != nil {
			return fmt.Errorf("failed to seed movements: %w", err)
		}
	} else {
		dsn := c.String("db-url")
		if dsn == "" {
			dsn = cfg.Database.URL()
		}
		if _, err := postgres.CopyMovements(c.Context, dsn, fixture.Movements); err != nil {
			return err
		}
	}

	if c.Bool("flush-cache") {
		if err := st.cached.Flush(c.Context); err != nil {
			log.Warn().Err(err).Msg("failed to flush history cache")
		}
	} else {
		for sku := range touchedSKUs(fixture) {
			if err := st.cached.Invalidate(c.Context, sku); err != nil {
				log.Warn().Err(err).Str("sku", sku).Msg("failed to invalidate history cache")
			}
		}
	}

	log.Info().
		Int("products", len(fixture.Products)).
		Int("movements", len(fixture.Movements)).
		Msg("seed completed")
	return nil
}

func readSeedFixture(path string) (*seedFixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	var fixture seedFixture
	if err := yaml.Unmarshal(raw, &fixture); err != nil {
		return nil, fmt.Errorf("failed to decode fixture: %w", err)
	}
	return &fixture, nil
}

func touchedSKUs(f *seedFixture) map[string]struct{} {
	skus := make(map[string]struct{}, len(f.Products))
	for _, p := range f.Products {
		skus[p.SKU] = struct{}{}
	}
	for _, m := range f.Movements {
		skus[m.SKU] = struct{}{}
	}
	return skus
}
