package main

import (
	"context"
	"errors"
	"time"

	"job-match/internal/app"
	"job-match/internal/database"

	"github.com/gofiber/fiber/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var withWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the pending-match sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), withWorker)
		},
	}
	cmd.Flags().BoolVar(&withWorker, "with-worker", false, "also consume the notification queue in this process")
	return cmd
}

func runServe(ctx context.Context, withWorker bool) error {
	c, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	log := c.Logger
	if err := database.CheckCollaboratorSchema(ctx, c.DB); err != nil {
		log.Warn("collaborator schema check failed", zap.Error(err))
	}

	addr, err := app.ListenAddr(c.Config.App.HTTPPort)
	if err != nil {
		return err
	}

	sched, err := app.NewScheduler(c)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	httpApp := app.NewHTTP(gctx, c)

	g.Go(func() error {
		log.Info("http server starting", zap.String("addr", addr))
		return httpApp.Fiber.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpApp.Fiber.ShutdownWithContext(shutdownCtx)
	})
	g.Go(func() error {
		return sched.Run(gctx)
	})

	if withWorker {
		if runner := c.NewRunner(); runner != nil {
			g.Go(func() error {
				return runner.Run(gctx)
			})
		} else {
			log.Warn("--with-worker ignored: no broker, notifications are delivered inline")
		}
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}
