package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/service-aggregator/internal/domain"
	"github.com/service-aggregator/internal/domain/repository"
	apperrors "github.com/service-aggregator/internal/pkg/errors"
	"github.com/service-aggregator/internal/usecase/dto"
	"github.com/service-aggregator/internal/worker"
)

const retryBaseDelay = 2 * time.Second

// Refresher - синхронное обновление данных провайдера, реализуется usecase.RefreshUseCase
type Refresher interface {
	Refresh(ctx context.Context, req dto.RefreshRequest) (*dto.RefreshResponse, error)
}

// StreamWorker обрабатывает запросы на обновление из stream:services:refresh
type StreamWorker struct {
	*worker.BaseWorker
	streamRepo   repository.StreamRepository
	refresher    Refresher
	consumerName string
	maxRetries   int
	retryDelay   time.Duration
}

// NewStreamWorker создает новый StreamWorker
func NewStreamWorker(
	streamRepo repository.StreamRepository,
	refresher Refresher,
	consumerGroup string,
	maxRetries int,
	logger *zap.Logger,
) *StreamWorker {
	hostname, _ := os.Hostname()
	consumerName := fmt.Sprintf("%s-%d", hostname, os.Getpid())

	return &StreamWorker{
		BaseWorker:   worker.NewBaseWorker("services-refresh", consumerGroup, logger),
		streamRepo:   streamRepo,
		refresher:    refresher,
		consumerName: consumerName,
		maxRetries:   maxRetries,
		retryDelay:   retryBaseDelay,
	}
}

// WithRetryDelay задаёт базовую паузу между повторами
func (w *StreamWorker) WithRetryDelay(d time.Duration) *StreamWorker {
	w.retryDelay = d
	return w
}

// Start запускает воркер и блокируется до остановки
func (w *StreamWorker) Start(ctx context.Context) error {
	logger := w.Logger()
	logger.Info("Starting refresh stream worker",
		zap.String("stream", domain.StreamServicesRefresh),
		zap.String("consumer_group", w.ConsumerGroup()),
		zap.String("consumer_name", w.consumerName))

	if err := w.streamRepo.CreateConsumerGroup(ctx, domain.StreamServicesRefresh, w.ConsumerGroup()); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages, err := w.streamRepo.ConsumeStream(ctx, domain.StreamServicesRefresh, w.ConsumerGroup(), w.consumerName)
	if err != nil {
		return fmt.Errorf("failed to consume stream: %w", err)
	}

	for {
		select {
		case <-w.StopChan():
			logger.Info("Worker stopped")
			return nil

		case <-ctx.Done():
			logger.Info("Context cancelled")
			return ctx.Err()

		case msg, ok := <-messages:
			if !ok {
				logger.Info("Stream closed")
				return nil
			}
			w.handle(ctx, msg)
		}
	}
}

// handle обрабатывает одно сообщение. Сообщение подтверждается всегда:
// итог, в том числе ошибка, уходит в stream:services:refresh:done.
func (w *StreamWorker) handle(ctx context.Context, msg domain.StreamMessage) {
	logger := w.Logger().With(zap.String("message_id", msg.ID))

	event, err := parseEvent(msg)
	if err != nil {
		logger.Warn("Failed to parse message, skipping", zap.Error(err))
		w.ack(ctx, msg.ID)
		return
	}

	logger = logger.With(
		zap.String("request_id", event.RequestID.String()),
		zap.String("provider", event.Provider),
		zap.String("country", event.Country))

	req := dto.RefreshRequest{Provider: event.Provider, Country: event.Country}
	if event.HasBBox() {
		req.BBox = event.BBox
	}

	resp, err := w.refreshWithRetry(ctx, req, logger)

	done := domain.RefreshDoneEvent{
		RequestID:  event.RequestID,
		Provider:   event.Provider,
		Country:    event.Country,
		FinishedAt: time.Now().UTC(),
	}
	if err != nil {
		done.Error = err.Error()
		logger.Error("Refresh failed", zap.Error(err))
	} else {
		done.Success = resp.Success
		done.Count = resp.Count
		logger.Info("Refresh completed", zap.Int("count", resp.Count))
	}

	if _, err := w.streamRepo.PublishToStream(ctx, domain.StreamServicesRefreshDone, done); err != nil {
		logger.Error("Failed to publish done event", zap.Error(err))
	}
	w.ack(ctx, msg.ID)
}

// refreshWithRetry повторяет только сбои провайдера; ошибки запроса и занятая аренда окончательны
func (w *StreamWorker) refreshWithRetry(ctx context.Context, req dto.RefreshRequest, logger *zap.Logger) (*dto.RefreshResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			delay := w.retryDelay * time.Duration(attempt)
			logger.Warn("Retrying refresh",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			if !w.Sleep(ctx, delay) {
				return nil, lastErr
			}
		}

		resp, err := w.refresher.Refresh(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (w *StreamWorker) ack(ctx context.Context, messageID string) {
	if err := w.streamRepo.AckMessage(ctx, domain.StreamServicesRefresh, w.ConsumerGroup(), messageID); err != nil {
		w.Logger().Error("Failed to ack message", zap.String("message_id", messageID), zap.Error(err))
	}
}

func retryable(err error) bool {
	return errors.Is(err, apperrors.ErrRefreshFailed) || errors.Is(err, apperrors.ErrDatabaseError)
}

func parseEvent(msg domain.StreamMessage) (*domain.RefreshRequestEvent, error) {
	var event domain.RefreshRequestEvent
	if err := json.Unmarshal([]byte(msg.Data), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.Provider == "" || event.Country == "" {
		return nil, errors.New("event without provider or country")
	}
	return &event, nil
}
