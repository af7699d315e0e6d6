package main

import (
	"errors"
	"fmt"

	"github.com/andresuchdata/autopo-replenish/migrations"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/urfave/cli/v2"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply or revert the Postgres schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db-url",
				Usage:   "Database connection string (defaults to the DB_* settings)",
				EnvVars: []string{"DATABASE_URL"},
			},
		},
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Run all up migrations",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrate) error {
					if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
						return fmt.Errorf("failed to run up migrations: %w", err)
					}
					fmt.Fprintln(c.App.Writer, "migrations applied successfully")
					return nil
				}),
			},
			{
				Name:  "down",
				Usage: "Run all down migrations",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrate) error {
					if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
						return fmt.Errorf("failed to run down migrations: %w", err)
					}
					fmt.Fprintln(c.App.Writer, "migrations reverted successfully")
					return nil
				}),
			},
			{
				Name:      "steps",
				Usage:     "Apply N migrations (negative reverts)",
				ArgsUsage: "<n>",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrate) error {
					var n int
					if _, err := fmt.Sscanf(c.Args().First(), "%d", &n); err != nil || n == 0 {
						return cli.Exit("steps needs a non-zero integer", 2)
					}
					if err := m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
						return fmt.Errorf("failed to run migrations: %w", err)
					}
					fmt.Fprintf(c.App.Writer, "applied %d migration steps\n", n)
					return nil
				}),
			},
			{
				Name:  "version",
				Usage: "Print the current migration version",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrate) error {
					v, dirty, err := m.Version()
					if err != nil {
						return fmt.Errorf("failed to get version: %w", err)
					}
					fmt.Fprintf(c.App.Writer, "version: %d, dirty: %v\n", v, dirty)
					return nil
				}),
			},
			{
				Name:      "force",
				Usage:     "Force set the version (use with caution)",
				ArgsUsage: "<version>",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrate) error {
					var v int
					if _, err := fmt.Sscanf(c.Args().First(), "%d", &v); err != nil {
						return cli.Exit("force needs an integer version", 2)
					}
					if err := m.Force(v); err != nil {
						return fmt.Errorf("failed to force version: %w", err)
					}
					fmt.Fprintf(c.App.Writer, "forced to version %d\n", v)
					return nil
				}),
			},
		},
	}
}

func withMigrator(fn func(*cli.Context, *migrate.Migrate) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		dsn := c.String("db-url")
		if dsn == "" {
			dsn = configFrom(c).Database.URL()
		}

		source, err := iofs.New(migrations.FS, ".")
		if err != nil {
			return fmt.Errorf("failed to create migration source: %w", err)
		}

		m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
		if err != nil {
			return fmt.Errorf("failed to create migrator: %w", err)
		}
		defer m.Close()

		return fn(c, m)
	}
}
