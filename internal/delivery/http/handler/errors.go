package handler

import (
	"errors"

	"job-match/internal/delivery/http/dto"
	"job-match/internal/delivery/http/middleware"
	"job-match/internal/domain/notification"
	"job-match/internal/pkg/response"
	"job-match/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

func mapMatchingUsecaseError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, usecase.ErrJobNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, "Job not found", nil, err)
	case errors.Is(err, usecase.ErrResumeNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, "Resume not found", nil, err)
	case errors.Is(err, usecase.ErrInvalidInput):
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	case errors.Is(err, usecase.ErrUnauthorized):
		return middleware.NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, err)
	case errors.Is(err, usecase.ErrProviderUnavailable):
		return middleware.NewAppError(fiber.StatusServiceUnavailable, "Embedding provider unavailable", nil, err)
	default:
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}
}

func mapNotificationError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, notification.ErrInvalidIntent) {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid notification", nil, err)
	}
	return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
}

func bindError(err error) error {
	if fields := dto.FieldErrors(err); fields != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Validation failed", fields, err)
	}
	return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
}
