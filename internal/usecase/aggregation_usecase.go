package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/service-aggregator/internal/domain"
	"github.com/service-aggregator/internal/domain/repository"
	"github.com/service-aggregator/internal/pkg/dedupe"
	"github.com/service-aggregator/internal/pkg/errors"
	"github.com/service-aggregator/internal/pkg/metrics"
	"github.com/service-aggregator/internal/pkg/tracing"
	"github.com/service-aggregator/internal/usecase/dto"
)

const (
	searchCachePrefix = "search:"

	defaultAggregationTimeout = 8 * time.Second
	defaultAggregationLimit   = 5

	// AllSourcesFailedMessage - значение поля error, когда не ответил ни один источник
	AllSourcesFailedMessage = "all service sources failed"
)

// Исходы источника для метрик и логов
const (
	outcomeOK      = "ok"
	outcomeFailed  = "failed"
	outcomeTimeout = "timeout"
	outcomePanic   = "panic"
)

// AggregationUseCase - параллельный опрос хранилища и провайдеров, слияние по приоритету
type AggregationUseCase struct {
	serviceRepo repository.ServiceRepository
	providers   []repository.ProviderRepository
	cacheRepo   repository.CacheRepository
	ranking     domain.Ranking
	metrics     *metrics.Metrics
	logger      *zap.Logger
	timeout     time.Duration
	limit       int
	cacheTTL    time.Duration
}

// AggregationOptions - параметры агрегации
type AggregationOptions struct {
	Timeout  time.Duration
	Limit    int
	CacheTTL time.Duration
}

// NewAggregationUseCase - providers в порядке слияния: OSM, GooglePlaces, relief ленты.
// cacheRepo и m могут быть nil.
func NewAggregationUseCase(
	serviceRepo repository.ServiceRepository,
	providers []repository.ProviderRepository,
	cacheRepo repository.CacheRepository,
	ranking domain.Ranking,
	m *metrics.Metrics,
	logger *zap.Logger,
	opts AggregationOptions,
) *AggregationUseCase {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultAggregationTimeout
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultAggregationLimit
	}
	return &AggregationUseCase{
		serviceRepo: serviceRepo,
		providers:   providers,
		cacheRepo:   cacheRepo,
		ranking:     ranking,
		metrics:     m,
		logger:      logger,
		timeout:     opts.Timeout,
		limit:       opts.Limit,
		cacheTTL:    opts.CacheTTL,
	}
}

// sourceResult - результат одного источника, index задаёт порядок слияния
type sourceResult struct {
	index    int
	source   domain.Source
	services []domain.Service
	err      error
	outcome  string
}

// Search валидирует запрос и выполняет агрегацию с кешированием полностью успешных ответов
func (uc *AggregationUseCase) Search(ctx context.Context, req dto.SearchRequest) (*dto.SearchResponse, bool, error) {
	serviceType, ok := domain.ParseServiceType(req.Type)
	if !ok {
		return nil, false, errors.ErrInvalidServiceType.WithDetails(map[string]interface{}{"type": req.Type})
	}
	country := strings.TrimSpace(req.Country)
	if country == "" {
		return nil, false, errors.ErrInvalidRequest.WithMessage("country is required")
	}

	var location *domain.Point
	if req.HasLocation() {
		p := domain.Point{Lat: *req.Lat, Lon: *req.Lng}
		if !p.Valid() {
			return nil, false, errors.ErrInvalidCoordinates
		}
		location = &p
	}

	key := searchCacheKey(serviceType, country, location)
	if cached := uc.fromCache(ctx, key); cached != nil {
		return cached, true, nil
	}

	resp := uc.Aggregate(ctx, serviceType, country, location)

	if resp.Error == nil && len(resp.FailedSources) == 0 {
		uc.toCache(ctx, key, resp)
	}
	return resp, false, nil
}

// Aggregate опрашивает все источники параллельно. Ошибка одного источника не влияет на остальные,
// поле Error выставляется только если не ответил ни один.
func (uc *AggregationUseCase) Aggregate(ctx context.Context, serviceType domain.ServiceType, country string, location *domain.Point) *dto.SearchResponse {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "aggregation.Aggregate",
		attribute.String("service.type", serviceType.String()),
		attribute.String("country", country),
		attribute.Int("sources", len(uc.providers)+1))

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	total := len(uc.providers) + 1
	resultsCh := make(chan sourceResult, total)

	go uc.runSource(ctx, resultsCh, 0, domain.SourceManual, func(ctx context.Context) ([]domain.Service, error) {
		return uc.serviceRepo.List(ctx, domain.ServiceFilter{
			Type:    serviceType,
			Country: country,
			Source:  domain.SourceManual,
			Limit:   uc.limit,
		})
	})

	query := domain.SearchQuery{Type: serviceType, Country: country, Location: location}
	for i, provider := range uc.providers {
		go uc.runSource(ctx, resultsCh, i+1, provider.Source(), func(ctx context.Context) ([]domain.Service, error) {
			return provider.Search(ctx, query)
		})
	}

	results := make([]*sourceResult, total)
	received := 0
collect:
	for received < total {
		select {
		case r := <-resultsCh:
			results[r.index] = &r
			received++
		case <-ctx.Done():
			break collect
		}
	}

	sources := uc.sourceNames()
	var merged []domain.Service
	var failed []string
	for i, r := range results {
		if r == nil {
			r = &sourceResult{index: i, source: sources[i], err: ctx.Err(), outcome: outcomeTimeout}
		}
		uc.metrics.RecordSourceOutcome(string(r.source), r.outcome)

		if r.err != nil {
			failed = append(failed, string(r.source))
			uc.logger.Warn("Service source failed, contributing empty result",
				zap.String("source", string(r.source)),
				zap.String("outcome", r.outcome),
				zap.String("type", serviceType.String()),
				zap.String("country", country),
				zap.Error(r.err))
			continue
		}
		// ключ идентичности уникален в пределах одного провайдера
		merged = append(merged, dedupe.Dedupe(r.services, domain.Service.IdentityKey)...)
	}

	ranked := uc.rank(merged)
	resp := uc.group(ranked)
	resp.FailedSources = failed

	if len(failed) == total {
		msg := AllSourcesFailedMessage
		resp.Error = &msg
		tracing.End(span, fmt.Errorf("%s", msg))
	} else {
		tracing.End(span, nil)
	}

	uc.metrics.ObserveAggregation(time.Since(start))
	uc.logger.Info("Aggregation completed",
		zap.String("type", serviceType.String()),
		zap.String("country", country),
		zap.Int("merged", len(merged)),
		zap.Int("returned", len(ranked)),
		zap.Strings("failed_sources", failed),
		zap.Duration("duration", time.Since(start)))

	return resp
}

// runSource выполняет вызов источника и всегда отправляет ровно один результат, даже при panic
func (uc *AggregationUseCase) runSource(
	ctx context.Context,
	out chan<- sourceResult,
	index int,
	source domain.Source,
	call func(ctx context.Context) ([]domain.Service, error),
) {
	result := sourceResult{index: index, source: source}
	defer func() {
		if rec := recover(); rec != nil {
			result.services = nil
			result.err = fmt.Errorf("source %s panicked: %v", source, rec)
			result.outcome = outcomePanic
		}
		out <- result
	}()

	ctx, span := tracing.Start(ctx, "aggregation.source", attribute.String("source", string(source)))
	services, err := call(ctx)
	tracing.End(span, err)

	result.services = services
	result.err = err
	switch {
	case err == nil:
		result.outcome = outcomeOK
	case ctx.Err() != nil:
		result.outcome = outcomeTimeout
	default:
		result.outcome = outcomeFailed
	}
}

// rank проставляет приоритет, выполняет стабильную сортировку и усечение
func (uc *AggregationUseCase) rank(merged []domain.Service) []domain.Service {
	ranked := make([]domain.Service, len(merged))
	copy(ranked, merged)
	for i := range ranked {
		uc.ranking.Apply(&ranked[i])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Priority < ranked[j].Priority
	})
	if len(ranked) > uc.limit {
		ranked = ranked[:uc.limit]
	}
	return ranked
}

// group раскладывает усечённый список по группам источников
func (uc *AggregationUseCase) group(ranked []domain.Service) *dto.SearchResponse {
	resp := &dto.SearchResponse{
		Internal: []domain.Service{},
		OSM:      []domain.Service{},
		Google:   []domain.Service{},
		Relief:   make(map[string][]domain.Service),
	}
	for _, p := range uc.providers {
		if isReliefSource(p.Source()) {
			resp.Relief[string(p.Source())] = []domain.Service{}
		}
	}

	for _, s := range ranked {
		switch s.Source {
		case domain.SourceManual:
			resp.Internal = append(resp.Internal, s)
		case domain.SourceOSM:
			resp.OSM = append(resp.OSM, s)
		case domain.SourceGooglePlaces:
			resp.Google = append(resp.Google, s)
		default:
			resp.Relief[string(s.Source)] = append(resp.Relief[string(s.Source)], s)
		}
	}
	return resp
}

func (uc *AggregationUseCase) sourceNames() []domain.Source {
	names := make([]domain.Source, 0, len(uc.providers)+1)
	names = append(names, domain.SourceManual)
	for _, p := range uc.providers {
		names = append(names, p.Source())
	}
	return names
}

func (uc *AggregationUseCase) fromCache(ctx context.Context, key string) *dto.SearchResponse {
	if uc.cacheRepo == nil || uc.cacheTTL <= 0 {
		return nil
	}
	data, err := uc.cacheRepo.Get(ctx, key)
	if err != nil {
		uc.logger.Warn("Search cache read failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	if data == nil {
		uc.metrics.RecordSearchCache(false)
		return nil
	}

	var resp dto.SearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		uc.logger.Warn("Corrupted search cache entry", zap.String("key", key), zap.Error(err))
		return nil
	}
	uc.metrics.RecordSearchCache(true)
	return &resp
}

func (uc *AggregationUseCase) toCache(ctx context.Context, key string, resp *dto.SearchResponse) {
	if uc.cacheRepo == nil || uc.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		uc.logger.Warn("Failed to marshal search response", zap.Error(err))
		return
	}
	if err := uc.cacheRepo.Set(ctx, key, data, uc.cacheTTL); err != nil {
		uc.logger.Warn("Search cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func isReliefSource(s domain.Source) bool {
	return s.IsProvider() && s != domain.SourceOSM && s != domain.SourceGooglePlaces
}

// searchCachePrefixFor - префикс ключей поиска по стране, используется при инвалидации.
// Страна берётся как есть после trim: хранилище и Overpass сравнивают её с учётом регистра.
func searchCachePrefixFor(country string) string {
	return searchCachePrefix + strings.TrimSpace(country) + ":"
}

func searchCacheKey(t domain.ServiceType, country string, location *domain.Point) string {
	loc := "-"
	if location != nil {
		loc = location.Key()
	}
	return searchCachePrefixFor(country) + string(t) + ":" + loc
}
