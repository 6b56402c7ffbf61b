package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/service-aggregator/internal/domain"
)

// ServiceRepository - хранилище канонических записей
type ServiceRepository interface {
	// List возвращает записи по фильтру, сначала самые старые
	List(ctx context.Context, filter domain.ServiceFilter) ([]domain.Service, error)

	// GetByID возвращает запись или nil, если её нет
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Service, error)

	// Create сохраняет ручную запись
	Create(ctx context.Context, service *domain.Service) error

	// Update обновляет изменяемые поля ручной записи
	Update(ctx context.Context, service *domain.Service) error

	// Delete удаляет ручную запись, возвращает false если записи не было
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	// UpsertByExternalID вставляет или обновляет записи провайдера по (source, external_id).
	// Все пачки выполняются в одной транзакции.
	UpsertByExternalID(ctx context.Context, services []domain.Service, batchSize int) (int, error)

	// ReplaceByCountry заменяет все записи источника в стране новым набором в одной транзакции
	ReplaceByCountry(ctx context.Context, source domain.Source, country string, services []domain.Service) (int, error)

	// CountBySource - число записей источника в стране
	CountBySource(ctx context.Context, source domain.Source, country string) (int, error)
}
