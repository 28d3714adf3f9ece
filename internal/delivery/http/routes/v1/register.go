package v1

import (
	"job-match/internal/delivery/http/handler"

	"github.com/gofiber/fiber/v3"
)

// RegisterStream mounts the realtime endpoints. They are public: events
// carry identifiers and scores only.
func RegisterStream(r fiber.Router, streamHandler *handler.StreamHandler) {
	if r == nil || streamHandler == nil {
		return
	}
	streamHandler.RegisterRoutes(r)
}

func RegisterUsers(r fiber.Router, matchHandler *handler.MatchHandler, auth fiber.Handler) {
	if r == nil || matchHandler == nil {
		return
	}

	protected := r
	if auth != nil {
		protected = r.Group("", auth)
	}
	matchHandler.RegisterRoutes(protected)
}

func RegisterTriggers(r fiber.Router, embeddingHandler *handler.EmbeddingHandler, notificationHandler *handler.NotificationHandler, guard fiber.Handler) {
	if r == nil {
		return
	}

	protected := r
	if guard != nil {
		protected = r.Group("", guard)
	}
	if embeddingHandler != nil {
		embeddingHandler.RegisterRoutes(protected)
	}
	if notificationHandler != nil {
		notificationHandler.RegisterRoutes(protected)
	}
}
