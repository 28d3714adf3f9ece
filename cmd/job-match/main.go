package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"job-match/internal/app"
	"job-match/internal/config"
	"job-match/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const appName = "job-match"

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           appName,
		Short:         "job-match embeds jobs and resumes, scores matches and notifies candidates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "optional config file (env vars take precedence)")

	rootCmd.AddCommand(newServeCmd(), newWorkerCmd(), newMigrateCmd(), newEmbedJobCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads config, builds the logger and the container. The returned
// cleanup closes the container and flushes the logger.
func setup(ctx context.Context) (*app.Container, func(), error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	log = log.With(zap.String("app", cfg.App.AppName), zap.String("env", cfg.App.Environment))

	c, err := app.NewContainer(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, fmt.Errorf("bootstrap: %w", err)
	}

	cleanup := func() {
		if err := c.Close(); err != nil {
			log.Warn("cleanup error", zap.Error(err))
		}
		_ = log.Sync()
	}
	return c, cleanup, nil
}
