package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/service-aggregator/internal/usecase/dto"
)

// HealthChecker - зависимость, состояние которой проверяется в /health
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler - проверка Postgres и Redis
type HealthHandler struct {
	checkers map[string]HealthChecker
	timeout  time.Duration
	logger   *zap.Logger
}

// NewHealthHandler - создание нового HealthHandler, nil checkers пропускаются
func NewHealthHandler(checkers map[string]HealthChecker, logger *zap.Logger) *HealthHandler {
	active := make(map[string]HealthChecker, len(checkers))
	for name, checker := range checkers {
		if checker != nil {
			active[name] = checker
		}
	}
	return &HealthHandler{
		checkers: active,
		timeout:  2 * time.Second,
		logger:   logger,
	}
}

// Health godoc
// @Summary Состояние сервиса
// @Tags Health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Failure 503 {object} dto.HealthResponse
// @Router /api/v1/health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	resp := dto.HealthResponse{
		Status:   "healthy",
		Services: make(map[string]string, len(h.checkers)),
	}

	for name, checker := range h.checkers {
		if err := checker.Health(ctx); err != nil {
			h.logger.Warn("Health check failed", zap.String("service", name), zap.Error(err))
			resp.Services[name] = "unhealthy"
			resp.Status = "unhealthy"
			continue
		}
		resp.Services[name] = "healthy"
	}

	if resp.Status != "healthy" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}
