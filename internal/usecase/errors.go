package usecase

import (
	"errors"

	"job-match/internal/repository"
)

var (
	ErrProviderUnavailable = errors.New("embedding provider unavailable")
	ErrPersistence         = errors.New("persistence failure")
	ErrJobNotFound         = repository.ErrJobNotFound
	ErrResumeNotFound      = repository.ErrResumeNotFound
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInternal            = errors.New("internal error")
)
