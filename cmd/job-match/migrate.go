package main

import (
	"context"
	"fmt"
	"time"

	"job-match/internal/config"
	"job-match/internal/database/migration"
	dbpostgres "job-match/internal/database/postgres"
	"job-match/internal/logger"
	"job-match/migrations"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			db, err := dbpostgres.Connect(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			r := migration.Runner{FS: migrations.FS, Dir: dir, Logger: log.Named("migrate")}
			n, err := r.Run(ctx, db.SQLDB())
			if err != nil {
				return err
			}
			log.Info("migrations applied", zap.Int("count", n))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "read migrations from this directory instead of the embedded set")
	return cmd
}
