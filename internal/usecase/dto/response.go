package dto

import (
	"github.com/google/uuid"

	"github.com/service-aggregator/internal/domain"
)

// SearchResponse - результат агрегации, сгруппированный по источникам после сортировки и усечения
type SearchResponse struct {
	Internal []domain.Service            `json:"internal"`
	OSM      []domain.Service            `json:"osm"`
	Google   []domain.Service            `json:"google"`
	Relief   map[string][]domain.Service `json:"relief"`
	Error    *string                     `json:"error"`

	// FailedSources - источники, не ответившие успешно
	FailedSources []string `json:"failed_sources,omitempty"`
}

// Total - число записей во всех группах
func (r *SearchResponse) Total() int {
	n := len(r.Internal) + len(r.OSM) + len(r.Google)
	for _, items := range r.Relief {
		n += len(items)
	}
	return n
}

// RefreshResponse - итог синхронного обновления
type RefreshResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

// AsyncRefreshResponse - запрос поставлен в очередь
type AsyncRefreshResponse struct {
	RequestID uuid.UUID `json:"request_id"`
	MessageID string    `json:"message_id"`
}

// HealthResponse - состояние зависимостей
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}
