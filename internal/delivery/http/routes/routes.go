package routes

import (
	"job-match/internal/delivery/http/handler"

	"github.com/gofiber/fiber/v3"
)

type Handlers struct {
	Health       *handler.HealthHandler
	Match        *handler.MatchHandler
	Stream       *handler.StreamHandler
	Embedding    *handler.EmbeddingHandler
	Notification *handler.NotificationHandler
}

type Guards struct {
	User     fiber.Handler
	Internal fiber.Handler
}

type Registry struct {
	handlers Handlers
	guards   Guards
}

func NewRegistry(h Handlers, g Guards) *Registry {
	return &Registry{handlers: h, guards: g}
}

func (r *Registry) Register(app *fiber.App) {
	if app == nil {
		return
	}

	r.registerHealth(app)
	r.registerAPI(app)
	r.registerInternal(app)
}

func (r *Registry) registerHealth(app *fiber.App) {
	if r.handlers.Health != nil {
		r.handlers.Health.RegisterRoutes(app)
	}
}

func (r *Registry) registerAPI(app *fiber.App) {
	api := app.Group("/api")
	RegisterV1(api.Group("/v1"), r.handlers, r.guards.User)
}

func (r *Registry) registerInternal(app *fiber.App) {
	internal := app.Group("/internal")
	RegisterInternalV1(internal.Group("/v1"), r.handlers, r.guards.Internal)
}
