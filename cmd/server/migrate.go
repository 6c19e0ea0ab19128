package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"rdmrecords/internal/platform/config"
	"rdmrecords/internal/platform/logger"
	"rdmrecords/internal/platform/postgres"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := config.FromEnv()
			log := logger.New(cfg.LogLevel)
			if !cfg.Database.Enabled() {
				return errors.New("migrate needs DATABASE_URL")
			}
			return migrate(ctx, cfg.Database, log.With("command", "migrate"))
		},
	}
}

func migrate(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) error {
	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		log.ErrorContext(ctx, "database unreachable", "error", err)
		return err
	}
	defer db.Close()

	if err := postgres.Migrate(db); err != nil {
		log.ErrorContext(ctx, "migration failed", "error", err)
		return err
	}
	log.InfoContext(ctx, "migrations applied")
	return nil
}
