package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/service-aggregator/internal/domain"
	"github.com/service-aggregator/internal/pkg/errors"
	"github.com/service-aggregator/internal/pkg/utils"
	"github.com/service-aggregator/internal/usecase/dto"
)

// Refresher - синхронное обновление данных провайдера, реализуется usecase.RefreshUseCase
type Refresher interface {
	Refresh(ctx context.Context, req dto.RefreshRequest) (*dto.RefreshResponse, error)
	Providers() []string
}

// EventPublisher публикует событие в Redis Stream
type EventPublisher interface {
	PublishToStream(ctx context.Context, stream string, data interface{}) (string, error)
}

// RefreshHandler - обработчик обновления данных провайдеров
type RefreshHandler struct {
	refresher Refresher
	publisher EventPublisher
	logger    *zap.Logger
}

// NewRefreshHandler - создание нового RefreshHandler. publisher может быть nil,
// тогда асинхронный запуск недоступен.
func NewRefreshHandler(refresher Refresher, publisher EventPublisher, logger *zap.Logger) *RefreshHandler {
	return &RefreshHandler{
		refresher: refresher,
		publisher: publisher,
		logger:    logger,
	}
}

// Refresh godoc
// @Summary Обновление данных провайдера по стране
// @Description Загружает все типы сервисов у провайдера и записывает их в хранилище. OSM заменяет все свои записи страны, остальные провайдеры делают upsert по externalId.
// @Tags Refresh
// @Accept json
// @Produce json
// @Param request body dto.RefreshRequest true "Провайдер, страна и необязательный bbox"
// @Success 200 {object} dto.RefreshResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 502 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /api/v1/services/refresh [post]
func (h *RefreshHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	if err := validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	result, err := h.refresher.Refresh(c.UserContext(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	return c.JSON(result)
}

// RefreshAsync godoc
// @Summary Асинхронное обновление данных провайдера
// @Description Ставит запрос на обновление в очередь воркера. Итог публикуется в stream:services:refresh:done.
// @Tags Refresh
// @Accept json
// @Produce json
// @Param request body dto.RefreshRequest true "Провайдер, страна и необязательный bbox"
// @Success 202 {object} utils.SuccessResponse{data=dto.AsyncRefreshResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /api/v1/services/refresh/async [post]
func (h *RefreshHandler) RefreshAsync(c *fiber.Ctx) error {
	if h.publisher == nil {
		return utils.SendError(c, errors.ErrQueueUnavailable)
	}

	var req dto.RefreshRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	if err := validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	event := domain.RefreshRequestEvent{
		RequestID:   uuid.New(),
		Provider:    req.Provider,
		Country:     req.Country,
		BBox:        req.BBox,
		RequestedAt: time.Now().UTC(),
	}

	messageID, err := h.publisher.PublishToStream(c.UserContext(), domain.StreamServicesRefresh, event)
	if err != nil {
		h.logger.Error("Failed to enqueue refresh",
			zap.String("provider", req.Provider),
			zap.String("country", req.Country),
			zap.Error(err))
		return utils.SendError(c, errors.ErrQueueUnavailable)
	}

	h.logger.Info("Refresh enqueued",
		zap.String("request_id", event.RequestID.String()),
		zap.String("provider", req.Provider),
		zap.String("country", req.Country),
		zap.String("message_id", messageID))

	return c.Status(fiber.StatusAccepted).JSON(utils.SuccessResponse{
		Data: dto.AsyncRefreshResponse{RequestID: event.RequestID, MessageID: messageID},
	})
}

// Providers godoc
// @Summary Подключённые провайдеры
// @Description Имена провайдеров, доступных для обновления
// @Tags Refresh
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=[]string}
// @Router /api/v1/services/providers [get]
func (h *RefreshHandler) Providers(c *fiber.Ctx) error {
	providers := h.refresher.Providers()
	return utils.SendSuccess(c, providers, &utils.Meta{Total: len(providers)})
}
