package domain

import (
	"time"

	"github.com/google/uuid"
)

// Stream names
const (
	StreamServicesRefresh     = "stream:services:refresh"
	StreamServicesRefreshDone = "stream:services:refresh:done"
)

// RefreshRequestEvent - входящее событие на обновление данных провайдера
type RefreshRequestEvent struct {
	RequestID   uuid.UUID `json:"request_id"`
	Provider    string    `json:"provider"`
	Country     string    `json:"country"`
	BBox        *string   `json:"bbox,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// HasBBox проверяет, что bbox передан и не пустой
func (e *RefreshRequestEvent) HasBBox() bool {
	return e.BBox != nil && *e.BBox != ""
}

// RefreshDoneEvent - результат обновления
type RefreshDoneEvent struct {
	RequestID  uuid.UUID `json:"request_id"`
	Provider   string    `json:"provider"`
	Country    string    `json:"country"`
	Success    bool      `json:"success"`
	Count      int       `json:"count"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// RefreshResult - итог одного обновления
type RefreshResult struct {
	Provider Source `json:"provider"`
	Country  string `json:"country"`
	Count    int    `json:"count"`
}

// StreamMessage - сообщение из Redis Stream
type StreamMessage struct {
	ID   string
	Data string
}
