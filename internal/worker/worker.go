// Package worker содержит общую инфраструктуру фоновых воркеров сервиса.
package worker

import (
	"context"
)

// Worker - фоновый процесс под управлением WorkerManager
type Worker interface {
	// Start блокируется до остановки воркера или отмены контекста
	Start(ctx context.Context) error

	// Stop сигнализирует о завершении, не дожидаясь его
	Stop() error

	Name() string
}
