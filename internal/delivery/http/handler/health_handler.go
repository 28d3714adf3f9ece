package handler

import (
	"job-match/internal/pkg/response"
	"job-match/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HealthHandler struct {
	uc       usecase.PipelineUsecase
	gatherer prometheus.Gatherer
}

func NewHealthHandler(uc usecase.PipelineUsecase, gatherer prometheus.Gatherer) *HealthHandler {
	return &HealthHandler{uc: uc, gatherer: gatherer}
}

func (h *HealthHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/health", h.Health)
	if h.gatherer != nil {
		r.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}
}

// Health reports 200 while the database answers and 503 otherwise. A
// missing broker only downgrades delivery to inline mode.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	st, err := h.uc.GetStatus(c.Context())
	if err != nil {
		return err
	}
	status := fiber.StatusOK
	if !st.DatabaseHealthy {
		status = fiber.StatusServiceUnavailable
	}
	return response.Success(c, status, "", st)
}
