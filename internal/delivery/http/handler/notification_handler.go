package handler

import (
	"context"

	"job-match/internal/delivery/http/dto"
	"job-match/internal/pkg/response"
	notifyuc "job-match/internal/usecase/notification"

	"github.com/gofiber/fiber/v3"
)

const defaultSweepLimit = 200

type PendingNotifier interface {
	NotifyPendingMatches(ctx context.Context, limit int) (notifyuc.NotifyResult, error)
}

type NotificationHandler struct {
	dispatcher notifyuc.Dispatcher
	pending    PendingNotifier
}

func NewNotificationHandler(d notifyuc.Dispatcher, pending PendingNotifier) *NotificationHandler {
	return &NotificationHandler{dispatcher: d, pending: pending}
}

func (h *NotificationHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Post("/notifications", h.Enqueue)
	r.Post("/matches/notify-pending", h.NotifyPending)
}

func (h *NotificationHandler) Enqueue(c fiber.Ctx) error {
	var req dto.NotificationRequest
	if err := c.Bind().Body(&req); err != nil {
		return bindError(err)
	}

	intent, err := req.ToIntent()
	if err != nil {
		return mapNotificationError(err)
	}

	res, err := h.dispatcher.Enqueue(c.Context(), intent)
	if err != nil {
		return mapNotificationError(err)
	}

	status := fiber.StatusOK
	if res.Queued {
		status = fiber.StatusAccepted
	}
	return response.Success(c, status, response.MessageOK, res)
}

func (h *NotificationHandler) NotifyPending(c fiber.Ctx) error {
	var req dto.NotifyPendingRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&req); err != nil {
			return bindError(err)
		}
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSweepLimit
	}

	res, err := h.pending.NotifyPendingMatches(c.Context(), limit)
	if err != nil {
		return mapNotificationError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, res)
}
