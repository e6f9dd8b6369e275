package main

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/bkyoung/prreview/internal/adapter/store/postgres"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [up|down|status]",
		Short: "Apply or inspect postgres schema migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Store.Driver != "postgres" {
				return fmt.Errorf("migrate: store.driver is %q, migrations only apply to postgres", cfg.Store.Driver)
			}
			return runMigrate(cfg.Store.DSN, args[0])
		},
	}
	return cmd
}

// runMigrate applies the embedded goose migration set against dsn. The
// sqlite adapter has no migrate step: it creates its schema inline on
// open (see internal/adapter/store/sqlite.NewStore), since a
// single-file embedded database has no concurrent-deployment schema
// race to guard against.
func runMigrate(dsn, action string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("migrate: open: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(postgres.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrate: set dialect: %w", err)
	}

	switch action {
	case "up":
		return goose.Up(db, "migrations")
	case "down":
		return goose.Down(db, "migrations")
	case "status":
		return goose.Status(db, "migrations")
	default:
		return fmt.Errorf("migrate: unknown action %q (want up, down, or status)", action)
	}
}
