package routes

import (
	v1 "job-match/internal/delivery/http/routes/v1"

	"github.com/gofiber/fiber/v3"
)

func RegisterV1(r fiber.Router, h Handlers, auth fiber.Handler) {
	if r == nil {
		return
	}

	v1.RegisterStream(r, h.Stream)
	v1.RegisterUsers(r, h.Match, auth)
}

func RegisterInternalV1(r fiber.Router, h Handlers, guard fiber.Handler) {
	if r == nil {
		return
	}

	v1.RegisterTriggers(r, h.Embedding, h.Notification, guard)
}
