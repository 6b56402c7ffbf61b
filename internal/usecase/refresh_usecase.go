package usecase

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/service-aggregator/internal/domain"
	"github.com/service-aggregator/internal/domain/repository"
	"github.com/service-aggregator/internal/pkg/dedupe"
	"github.com/service-aggregator/internal/pkg/errors"
	"github.com/service-aggregator/internal/pkg/metrics"
	"github.com/service-aggregator/internal/pkg/tracing"
	"github.com/service-aggregator/internal/pkg/utils"
	"github.com/service-aggregator/internal/pkg/validator"
	"github.com/service-aggregator/internal/usecase/dto"
)

const (
	leaseKeyPrefix = "lease:refresh:"

	defaultRefreshBatchSize = 10
	defaultRefreshLeaseTTL  = 10 * time.Minute
	defaultRefreshRadiusCap = 50000
	// refreshTypeConcurrency - сколько типов сервиса запрашивается у провайдера одновременно
	refreshTypeConcurrency = 2
)

// errProviderFetch помечает ошибки этапа загрузки у провайдера
var errProviderFetch = stderrors.New("provider fetch failed")

// RefreshOptions - параметры обновления
type RefreshOptions struct {
	BatchSize int
	LeaseTTL  time.Duration
	RadiusCap int
}

// RefreshUseCase - загрузка данных провайдера по стране и запись в хранилище
type RefreshUseCase struct {
	serviceRepo repository.ServiceRepository
	providers   map[domain.Source]repository.ProviderRepository
	leaseRepo   repository.LeaseRepository
	cacheRepo   repository.CacheRepository
	metrics     *metrics.Metrics
	logger      *zap.Logger
	opts        RefreshOptions
}

// NewRefreshUseCase - leaseRepo, cacheRepo и m могут быть nil
func NewRefreshUseCase(
	serviceRepo repository.ServiceRepository,
	providers []repository.ProviderRepository,
	leaseRepo repository.LeaseRepository,
	cacheRepo repository.CacheRepository,
	m *metrics.Metrics,
	logger *zap.Logger,
	opts RefreshOptions,
) *RefreshUseCase {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultRefreshBatchSize
	}
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = defaultRefreshLeaseTTL
	}
	if opts.RadiusCap <= 0 {
		opts.RadiusCap = defaultRefreshRadiusCap
	}

	byName := make(map[domain.Source]repository.ProviderRepository, len(providers))
	for _, p := range providers {
		byName[p.Source()] = p
	}

	return &RefreshUseCase{
		serviceRepo: serviceRepo,
		providers:   byName,
		leaseRepo:   leaseRepo,
		cacheRepo:   cacheRepo,
		metrics:     m,
		logger:      logger,
		opts:        opts,
	}
}

// Providers - имена подключённых провайдеров в алфавитном порядке
func (uc *RefreshUseCase) Providers() []string {
	names := make([]string, 0, len(uc.providers))
	for name := range uc.providers {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}

// Refresh загружает все типы сервисов провайдера для страны. OSM заменяется целиком по стране,
// остальные провайдеры обновляются по externalId. Любая ошибка отменяет запись полностью.
func (uc *RefreshUseCase) Refresh(ctx context.Context, req dto.RefreshRequest) (*dto.RefreshResponse, error) {
	provider, err := uc.resolveProvider(req.Provider)
	if err != nil {
		return nil, err
	}
	source := provider.Source()

	country := strings.TrimSpace(req.Country)
	if country == "" {
		return nil, errors.ErrInvalidRequest.WithMessage("country is required")
	}

	var bbox *domain.BoundingBox
	if req.BBox != nil && strings.TrimSpace(*req.BBox) != "" {
		bbox, err = domain.ParseBoundingBox(*req.BBox)
		if err != nil {
			return nil, errors.ErrInvalidBBox.WithDetails(map[string]interface{}{"bbox": *req.BBox})
		}
	}

	release, err := uc.acquireLease(ctx, source, country)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, span := tracing.Start(ctx, "refresh.Refresh",
		attribute.String("provider", string(source)),
		attribute.String("country", country))

	start := time.Now()
	count, err := uc.run(ctx, provider, country, bbox)
	tracing.End(span, err)
	uc.metrics.RecordRefresh(string(source), count, err)
	if err != nil {
		uc.logger.Error("Provider refresh failed",
			zap.String("provider", string(source)),
			zap.String("country", country),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return nil, uc.toAppError(source, err)
	}

	uc.invalidateSearchCache(ctx, country)

	uc.logger.Info("Provider refresh completed",
		zap.String("provider", string(source)),
		zap.String("country", country),
		zap.Int("count", count),
		zap.Duration("duration", time.Since(start)))

	return &dto.RefreshResponse{Success: true, Count: count}, nil
}

func (uc *RefreshUseCase) run(ctx context.Context, provider repository.ProviderRepository, country string, bbox *domain.BoundingBox) (int, error) {
	services, err := uc.fetchAll(ctx, provider, country, bbox)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errProviderFetch, err)
	}

	valid := uc.prepare(services, provider.Source(), country)

	if provider.Source() == domain.SourceOSM {
		return uc.serviceRepo.ReplaceByCountry(ctx, provider.Source(), country, valid)
	}
	return uc.serviceRepo.UpsertByExternalID(ctx, valid, uc.opts.BatchSize)
}

// fetchAll запрашивает все типы сервисов; ошибка одного типа отменяет остальные
func (uc *RefreshUseCase) fetchAll(ctx context.Context, provider repository.ProviderRepository, country string, bbox *domain.BoundingBox) ([]domain.Service, error) {
	types := domain.ServiceTypes
	results := make([][]domain.Service, len(types))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshTypeConcurrency)
	for i, t := range types {
		g.Go(func() error {
			q := domain.SearchQuery{Type: t, Country: country, BBox: bbox}
			if bbox != nil {
				center := bbox.Center()
				q.Location = &center
				q.RadiusMeters = utils.BBoxRadiusMeters(bbox.MinLat, bbox.MinLon, bbox.MaxLat, bbox.MaxLon, uc.opts.RadiusCap)
			}
			services, err := provider.Search(gctx, q)
			if err != nil {
				return fmt.Errorf("%s %s: %w", provider.Source(), t, err)
			}
			results[i] = services
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []domain.Service
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged, nil
}

// prepare дедуплицирует по ключу идентичности и отбрасывает записи, не прошедшие валидацию
func (uc *RefreshUseCase) prepare(services []domain.Service, source domain.Source, country string) []domain.Service {
	unique := dedupe.Dedupe(services, domain.Service.IdentityKey)

	valid := make([]domain.Service, 0, len(unique))
	for _, s := range unique {
		s.Source = source
		s.Country = country
		s.CreatedBy = nil
		s.Languages = domain.NormalizeLanguages(s.Languages)

		if err := validator.Validate(s); err != nil {
			uc.logger.Warn("Dropping invalid provider record",
				zap.String("source", string(source)),
				zap.String("external_id", s.ExternalIDValue()),
				zap.Any("fields", validator.FieldErrors(err)))
			continue
		}
		valid = append(valid, s)
	}

	if len(valid) < len(services) {
		uc.logger.Debug("Provider records filtered",
			zap.String("source", string(source)),
			zap.Int("fetched", len(services)),
			zap.Int("kept", len(valid)))
	}
	return valid
}

func (uc *RefreshUseCase) resolveProvider(name string) (repository.ProviderRepository, error) {
	name = strings.TrimSpace(name)
	for source, p := range uc.providers {
		if strings.EqualFold(string(source), name) {
			return p, nil
		}
	}
	if strings.EqualFold(name, string(domain.SourceOSM)) || strings.EqualFold(name, string(domain.SourceGooglePlaces)) {
		return nil, errors.ErrProviderDisabled.WithDetails(map[string]interface{}{"provider": name})
	}
	return nil, errors.ErrUnknownProvider.WithDetails(map[string]interface{}{
		"provider":  name,
		"available": uc.Providers(),
	})
}

// acquireLease берёт аренду на (source, country), повторный запуск получает REFRESH_IN_PROGRESS
func (uc *RefreshUseCase) acquireLease(ctx context.Context, source domain.Source, country string) (func(), error) {
	if uc.leaseRepo == nil {
		return func() {}, nil
	}

	key := leaseKeyPrefix + string(source) + ":" + country
	token, ok, err := uc.leaseRepo.Acquire(ctx, key, uc.opts.LeaseTTL)
	if err != nil {
		uc.logger.Error("Failed to acquire refresh lease", zap.String("key", key), zap.Error(err))
		return nil, errors.ErrCacheError
	}
	if !ok {
		return nil, errors.ErrRefreshInProgress.WithDetails(map[string]interface{}{
			"provider": string(source),
			"country":  country,
		})
	}

	return func() {
		// аренда освобождается даже если запрос отменён
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := uc.leaseRepo.Release(releaseCtx, key, token); err != nil {
			uc.logger.Warn("Failed to release refresh lease", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func (uc *RefreshUseCase) invalidateSearchCache(ctx context.Context, country string) {
	if uc.cacheRepo == nil {
		return
	}
	if err := uc.cacheRepo.DeleteByPrefix(ctx, searchCachePrefixFor(country)); err != nil {
		uc.logger.Warn("Failed to invalidate search cache",
			zap.String("country", country),
			zap.Error(err))
	}
}

func (uc *RefreshUseCase) toAppError(source domain.Source, err error) error {
	details := map[string]interface{}{
		"provider": string(source),
		"error":    err.Error(),
	}
	switch {
	case stderrors.Is(err, errProviderFetch):
		return errors.ErrRefreshFailed.WithDetails(details)
	case errors.IsPersistenceConflict(err):
		return errors.ErrConflict.WithDetails(details)
	case errors.IsValidation(err):
		return errors.ErrInvalidRequest.WithDetails(details)
	}
	if _, ok := errors.AsAppError(err); ok {
		return err
	}
	return errors.ErrDatabaseError.WithDetails(details)
}
