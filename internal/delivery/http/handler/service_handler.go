package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/service-aggregator/internal/delivery/http/middleware"
	"github.com/service-aggregator/internal/domain"
	"github.com/service-aggregator/internal/pkg/utils"
	"github.com/service-aggregator/internal/usecase/dto"
)

// ServiceManager - операции над ручными записями, реализуется usecase.ServiceUseCase
type ServiceManager interface {
	Create(ctx context.Context, userID string, req dto.CreateServiceRequest) (*domain.Service, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Service, error)
	List(ctx context.Context, req dto.ListServicesRequest) ([]domain.Service, error)
	Update(ctx context.Context, userID string, id uuid.UUID, req dto.UpdateServiceRequest) (*domain.Service, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

// ServiceHandler - CRUD ручных записей
type ServiceHandler struct {
	services ServiceManager
	logger   *zap.Logger
}

// NewServiceHandler - создание нового ServiceHandler
func NewServiceHandler(services ServiceManager, logger *zap.Logger) *ServiceHandler {
	return &ServiceHandler{
		services: services,
		logger:   logger,
	}
}

// List godoc
// @Summary Список ручных записей
// @Tags Services
// @Produce json
// @Param type query string false "Тип сервиса"
// @Param country query string false "Страна"
// @Param limit query int false "Максимальное количество записей" default(50)
// @Success 200 {object} utils.SuccessResponse{data=[]domain.Service}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/services [get]
func (h *ServiceHandler) List(c *fiber.Ctx) error {
	req := dto.ListServicesRequest{
		Type:    c.Query("type"),
		Country: c.Query("country"),
		Limit:   c.QueryInt("limit", 0),
	}
	if err := validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	services, err := h.services.List(c.UserContext(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, services, &utils.Meta{Total: len(services)})
}

// Get godoc
// @Summary Запись по ID
// @Tags Services
// @Produce json
// @Param id path string true "ID записи"
// @Success 200 {object} utils.SuccessResponse{data=domain.Service}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/services/{id} [get]
func (h *ServiceHandler) Get(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return utils.SendError(c, err)
	}

	svc, err := h.services.Get(c.UserContext(), id)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, svc, nil)
}

// Create godoc
// @Summary Создание ручной записи
// @Description Источник всегда manual, владелец берётся из заголовка X-User-ID
// @Tags Services
// @Accept json
// @Produce json
// @Param X-User-ID header string true "ID пользователя"
// @Param request body dto.CreateServiceRequest true "Запись"
// @Success 201 {object} utils.SuccessResponse{data=domain.Service}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /api/v1/services [post]
func (h *ServiceHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateServiceRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	if err := validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	svc, err := h.services.Create(c.UserContext(), c.Get(middleware.HeaderUserID), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendCreated(c, svc)
}

// Update godoc
// @Summary Изменение ручной записи
// @Description Изменять можно только свои ручные записи
// @Tags Services
// @Accept json
// @Produce json
// @Param X-User-ID header string true "ID пользователя"
// @Param id path string true "ID записи"
// @Param request body dto.UpdateServiceRequest true "Изменяемые поля"
// @Success 200 {object} utils.SuccessResponse{data=domain.Service}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/services/{id} [put]
func (h *ServiceHandler) Update(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return utils.SendError(c, err)
	}

	var req dto.UpdateServiceRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	if err := validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	svc, err := h.services.Update(c.UserContext(), c.Get(middleware.HeaderUserID), id, req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendSuccess(c, svc, nil)
}

// Delete godoc
// @Summary Удаление ручной записи
// @Tags Services
// @Param X-User-ID header string true "ID пользователя"
// @Param id path string true "ID записи"
// @Success 204
// @Failure 401 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/services/{id} [delete]
func (h *ServiceHandler) Delete(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return utils.SendError(c, err)
	}

	if err := h.services.Delete(c.UserContext(), c.Get(middleware.HeaderUserID), id); err != nil {
		return utils.SendError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
