package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/service-aggregator/internal/pkg/utils"
	"github.com/service-aggregator/internal/usecase/dto"
)

// ServiceSearcher - агрегированный поиск, реализуется usecase.AggregationUseCase
type ServiceSearcher interface {
	Search(ctx context.Context, req dto.SearchRequest) (*dto.SearchResponse, bool, error)
}

// SearchHandler - обработчик агрегированного поиска сервисов
type SearchHandler struct {
	searcher ServiceSearcher
	logger   *zap.Logger
}

// NewSearchHandler - создание нового SearchHandler
func NewSearchHandler(searcher ServiceSearcher, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		searcher: searcher,
		logger:   logger,
	}
}

// Search godoc
// @Summary Агрегированный поиск сервисов помощи
// @Description Опрашивает ручные записи, OpenStreetMap, Google Places и ленты гуманитарных организаций параллельно. Результат сортируется по приоритету источника, усекается до лимита и группируется по источникам. Если не ответил ни один источник, поле error заполнено, статус остаётся 200.
// @Tags Services
// @Produce json
// @Param type query string true "Тип сервиса (clinic, shelter, food, legal, education, other)"
// @Param country query string true "Страна"
// @Param lat query number false "Широта пользователя"
// @Param lng query number false "Долгота пользователя"
// @Success 200 {object} dto.SearchResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/services/search [get]
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	req := dto.SearchRequest{
		Type:    c.Query("type"),
		Country: c.Query("country"),
	}

	var err error
	if req.Lat, err = queryFloat(c, "lat"); err != nil {
		return utils.SendError(c, err)
	}
	if req.Lng, err = queryFloat(c, "lng"); err != nil {
		return utils.SendError(c, err)
	}

	if err := validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	result, cached, err := h.searcher.Search(c.UserContext(), req)
	if err != nil {
		return utils.SendError(c, err)
	}

	if cached {
		c.Set("X-Cache", "HIT")
	} else {
		c.Set("X-Cache", "MISS")
	}
	if result.Error != nil {
		h.logger.Warn("Search degraded",
			zap.String("type", req.Type),
			zap.String("country", req.Country),
			zap.Strings("failed_sources", result.FailedSources))
	}

	return c.JSON(result)
}
