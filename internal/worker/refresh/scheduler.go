package refresh

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/service-aggregator/internal/pkg/errors"
	"github.com/service-aggregator/internal/usecase/dto"
	"github.com/service-aggregator/internal/worker"
)

// Scheduler периодически обновляет настроенные страны у настроенных провайдеров
type Scheduler struct {
	*worker.BaseWorker
	refresher Refresher
	countries []string
	providers []string
	interval  time.Duration
}

// NewScheduler создает новый Scheduler
func NewScheduler(refresher Refresher, countries, providers []string, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		BaseWorker: worker.NewBaseWorker("services-refresh-scheduler", "", logger),
		refresher:  refresher,
		countries:  countries,
		providers:  providers,
		interval:   interval,
	}
}

// Start выполняет первый проход сразу, затем по таймеру
func (s *Scheduler) Start(ctx context.Context) error {
	logger := s.Logger()
	if s.interval <= 0 || len(s.countries) == 0 || len(s.providers) == 0 {
		logger.Info("Scheduled refresh disabled",
			zap.Duration("interval", s.interval),
			zap.Strings("countries", s.countries),
			zap.Strings("providers", s.providers))
		<-s.StopChan()
		return nil
	}

	logger.Info("Starting scheduled refresh",
		zap.Duration("interval", s.interval),
		zap.Strings("countries", s.countries),
		zap.Strings("providers", s.providers))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-s.StopChan():
			logger.Info("Worker stopped")
			return nil
		case <-ctx.Done():
			logger.Info("Context cancelled")
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce обходит все пары провайдер/страна последовательно и возвращает число успешных
func (s *Scheduler) RunOnce(ctx context.Context) int {
	logger := s.Logger()
	succeeded := 0

	for _, provider := range s.providers {
		for _, country := range s.countries {
			if s.IsStopped() || ctx.Err() != nil {
				return succeeded
			}

			resp, err := s.refresher.Refresh(ctx, dto.RefreshRequest{Provider: provider, Country: country})
			switch {
			case err == nil:
				succeeded++
				logger.Info("Scheduled refresh completed",
					zap.String("provider", provider),
					zap.String("country", country),
					zap.Int("count", resp.Count))
			case errors.Is(err, apperrors.ErrRefreshInProgress):
				logger.Debug("Scheduled refresh skipped, already running",
					zap.String("provider", provider),
					zap.String("country", country))
			default:
				logger.Error("Scheduled refresh failed",
					zap.String("provider", provider),
					zap.String("country", country),
					zap.Error(err))
			}
		}
	}
	return succeeded
}
