package handler

import (
	"strconv"

	"job-match/internal/delivery/http/dto"
	"job-match/internal/delivery/http/middleware"
	"job-match/internal/pkg/response"
	"job-match/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type MatchHandler struct {
	uc usecase.MatchingUsecase
}

func NewMatchHandler(uc usecase.MatchingUsecase) *MatchHandler {
	return &MatchHandler{uc: uc}
}

func (h *MatchHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/users/me/matches", h.ListMyMatches)
}

func (h *MatchHandler) ListMyMatches(c fiber.Ctx) error {
	userID, ok := c.Locals(middleware.CtxUserIDKey).(uuid.UUID)
	if !ok {
		return middleware.NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
	}

	minScore := 0
	if raw := c.Query("min_score"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return middleware.NewAppError(fiber.StatusBadRequest, "Invalid min_score", nil, err)
		}
		minScore = v
	}

	items, err := h.uc.GetUserMatchingJobs(c.Context(), userID, minScore)
	if err != nil {
		return mapMatchingUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewUserMatchResponses(items))
}
