package handler

import (
	"job-match/internal/delivery/http/middleware"
	"job-match/internal/pkg/response"
	"job-match/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// EmbeddingHandler serves the internal embed-and-match triggers.
type EmbeddingHandler struct {
	uc usecase.MatchingUsecase
}

func NewEmbeddingHandler(uc usecase.MatchingUsecase) *EmbeddingHandler {
	return &EmbeddingHandler{uc: uc}
}

func (h *EmbeddingHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Post("/jobs/:job_id/embed", h.EmbedJob)
	r.Post("/users/:user_id/resume/embed", h.EmbedResume)
}

func (h *EmbeddingHandler) EmbedJob(c fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("job_id"))
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid job id", nil, err)
	}

	res, err := h.uc.EmbedAndMatchJob(c.Context(), jobID)
	if err != nil {
		return mapMatchingUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, res)
}

func (h *EmbeddingHandler) EmbedResume(c fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid user id", nil, err)
	}

	res, err := h.uc.EmbedResume(c.Context(), userID)
	if err != nil {
		return mapMatchingUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, res)
}
