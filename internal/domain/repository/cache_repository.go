package repository

import (
	"context"
	"time"
)

// CacheRepository определяет методы для работы с кешем
type CacheRepository interface {
	// Get получает значение из кеша по ключу, (nil, nil) при промахе
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение в кеше с TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete удаляет значение из кеша
	Delete(ctx context.Context, key string) error

	// Exists проверяет существование ключа
	Exists(ctx context.Context, key string) (bool, error)

	// DeleteByPrefix удаляет все ключи с префиксом
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// LeaseRepository - распределённая аренда для взаимного исключения refresh операций
type LeaseRepository interface {
	// Acquire пытается взять аренду, возвращает токен и false если она уже занята
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error)

	// Release освобождает аренду, если токен совпадает
	Release(ctx context.Context, key, token string) error
}
