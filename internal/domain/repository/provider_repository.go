package repository

import (
	"context"

	"github.com/service-aggregator/internal/domain"
)

// ProviderRepository - адаптер внешнего источника сервисов
type ProviderRepository interface {
	// Source - значение source, которым помечаются записи провайдера
	Source() domain.Source

	// Search возвращает записи провайдера, дедуплицированные по externalId.
	// Ошибка возвращается только если не удался ни один запрос категории.
	Search(ctx context.Context, query domain.SearchQuery) ([]domain.Service, error)
}

// GeoResolver определяет страну по координатам
type GeoResolver interface {
	ResolveCountry(ctx context.Context, point domain.Point) (string, error)
}
