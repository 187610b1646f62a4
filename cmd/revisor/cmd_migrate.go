package main

import (
	"context"
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/persistorai/revisor/internal/config"
	"github.com/persistorai/revisor/internal/db"
	"github.com/persistorai/revisor/internal/db/migrations"
	"github.com/persistorai/revisor/internal/dbpool"
)

func newMigrateCmd() *cobra.Command {
	var status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply PostgreSQL schema migrations",
		Long:  "Apply pending migrations to DATABASE_URL, or list their state with --status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), status)
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "Show migration state without applying")
	return cmd
}

func runMigrate(ctx context.Context, status bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL.Value() == "" {
		return errors.New("DATABASE_URL is required for migrate")
	}
	log := newLogger(cfg.LogLevel)

	pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value(), dbpool.Options{MaxConns: 2})
	if err != nil {
		return err
	}
	defer pool.Close()

	if !status {
		return db.RunMigrations(ctx, pool, log, migrations.FS)
	}

	states, err := db.MigrationStatus(ctx, pool, migrations.FS)
	if err != nil {
		return err
	}
	if flagFmt != "table" {
		formatJSON(states)
		return nil
	}
	rows := make([][]string, 0, len(states))
	for _, s := range states {
		applied := "-"
		if s.Applied {
			applied = s.AppliedAt.Format("2006-01-02 15:04:05")
		}
		rows = append(rows, []string{strconv.FormatInt(s.Version, 10), s.File, applied})
	}
	formatTable([]string{"VERSION", "FILE", "APPLIED"}, rows)
	return nil
}
