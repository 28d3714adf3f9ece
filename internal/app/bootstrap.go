package app

import (
	"context"
	"fmt"
	"strings"

	"job-match/internal/delivery/http/dto"
	"job-match/internal/delivery/http/handler"
	"job-match/internal/delivery/http/middleware"
	"job-match/internal/delivery/http/routes"
	"job-match/internal/pkg/jwt"
	"job-match/internal/scheduler"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

type App struct {
	Fiber *fiber.App
}

// NewHTTP builds the fiber app. base outlives individual requests and bounds
// long-lived stream connections.
func NewHTTP(base context.Context, c *Container) *App {
	f := fiber.New(fiber.Config{
		AppName:         c.Config.App.AppName,
		StructValidator: dto.NewStructValidator(),
	})

	registerGlobalMiddleware(f, c.Logger)
	registerRoutes(f, base, c)

	return &App{Fiber: f}
}

func registerGlobalMiddleware(app *fiber.App, logger *zap.Logger) {
	if app == nil {
		return
	}

	errMw := middleware.NewErrorMiddleware(logger)
	accessMw := middleware.NewAccessLogMiddleware(logger)
	app.Use(accessMw.Middleware())
	app.Use(errMw.Middleware())
}

func registerRoutes(app *fiber.App, base context.Context, c *Container) {
	if app == nil {
		return
	}

	h := routes.Handlers{
		Health:    handler.NewHealthHandler(c.Pipeline, c.Gatherer),
		Match:     handler.NewMatchHandler(c.Matching),
		Embedding: handler.NewEmbeddingHandler(c.Matching),
		Stream: handler.NewStreamHandler(base, c.Subscriber, handler.StreamConfig{
			Channels:  c.Config.Realtime.Channels,
			KeepAlive: c.Config.Realtime.KeepAlive,
		}, c.Logger, c.Metrics),
		Notification: handler.NewNotificationHandler(c.Dispatcher, c.Notifier),
	}
	g := routes.Guards{
		User:     middleware.NewAuthMiddleware(jwt.NewHMACValidator(c.Config.Auth.AccessSecret)).Middleware(),
		Internal: middleware.NewInternalTokenMiddleware(c.Config.Auth.InternalToken).Middleware(),
	}
	routes.NewRegistry(h, g).Register(app)
}

// NewScheduler registers the periodic sweep of unnotified matches.
func NewScheduler(c *Container) (*scheduler.Scheduler, error) {
	s := scheduler.New(c.Logger)
	spec := strings.TrimSpace(c.Config.Notification.SweepSpec)
	if spec == "" {
		return s, nil
	}

	limit := c.Config.Notification.SweepLimit
	sweep := scheduler.JobFunc{
		JobName: "notify-pending-matches",
		Fn: func(ctx context.Context) error {
			res, err := c.Notifier.NotifyPendingMatches(ctx, limit)
			if err != nil {
				return err
			}
			if res.Scanned > 0 {
				c.Logger.Info("pending matches swept",
					zap.Int("scanned", res.Scanned),
					zap.Int("queued", res.Queued),
					zap.Int("inline", res.Inline),
					zap.Int("skipped", res.Skipped),
					zap.Int("failed", res.Failed),
				)
			}
			return nil
		},
	}
	if err := s.Add(sweep, spec); err != nil {
		return nil, fmt.Errorf("schedule sweep: %w", err)
	}
	return s, nil
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
