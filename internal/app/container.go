// Package app собирает зависимости сервиса из конфигурации. Используется всеми cmd.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/service-aggregator/internal/config"
	"github.com/service-aggregator/internal/domain"
	"github.com/service-aggregator/internal/domain/repository"
	"github.com/service-aggregator/internal/infrastructure/fetch"
	"github.com/service-aggregator/internal/infrastructure/geocoding"
	"github.com/service-aggregator/internal/infrastructure/overpass"
	"github.com/service-aggregator/internal/infrastructure/places"
	"github.com/service-aggregator/internal/infrastructure/relieffeed"
	"github.com/service-aggregator/internal/pkg/logger"
	"github.com/service-aggregator/internal/pkg/metrics"
	"github.com/service-aggregator/internal/pkg/tracing"
	"github.com/service-aggregator/internal/repository/cache"
	"github.com/service-aggregator/internal/repository/postgres"
	redisrepo "github.com/service-aggregator/internal/repository/redis"
	"github.com/service-aggregator/internal/usecase"
)

// Container - подключения, репозитории и use case'ы одного процесса
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	DB    *postgres.DB
	Redis *cache.Redis

	ServiceRepo repository.ServiceRepository
	CacheRepo   repository.CacheRepository
	LeaseRepo   repository.LeaseRepository
	StreamRepo  repository.StreamRepository
	Providers   []repository.ProviderRepository

	AggregationUC *usecase.AggregationUseCase
	RefreshUC     *usecase.RefreshUseCase
	ServiceUC     *usecase.ServiceUseCase

	shutdownTracing func(context.Context) error
}

// New подключается к Postgres и Redis и собирает граф зависимостей.
// При ошибке уже открытые подключения закрываются.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: log}
	if err := c.init(ctx); err != nil {
		c.Close(context.Background())
		return nil, err
	}
	return c, nil
}

func (c *Container) init(ctx context.Context) error {
	cfg, log := c.Config, c.Logger

	var err error
	c.shutdownTracing, err = tracing.Setup(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Enabled)
	if err != nil {
		return fmt.Errorf("failed to setup tracing: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.Metrics = metrics.New(registry)

	c.DB, err = postgres.New(&cfg.Database, logger.WithComponent(log, "postgres"))
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	log.Info("PostgreSQL connected")

	c.Redis, err = cache.NewRedis(&cfg.Redis, logger.WithComponent(log, "redis"))
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Info("Redis connected")

	c.ServiceRepo = postgres.NewServiceRepository(c.DB)
	c.CacheRepo = cache.NewCacheRepository(c.Redis)
	c.LeaseRepo = cache.NewLeaseRepository(c.Redis)
	c.StreamRepo = redisrepo.NewStreamRepository(c.Redis.Client(), cfg.Worker.StreamReadTimeout, logger.WithComponent(log, "stream"))

	c.Providers, err = c.buildProviders()
	if err != nil {
		return err
	}

	feeds := make([]string, 0, len(cfg.ReliefFeeds))
	for _, feed := range cfg.ReliefFeeds {
		feeds = append(feeds, feed.Name)
	}

	c.AggregationUC = usecase.NewAggregationUseCase(
		c.ServiceRepo,
		c.Providers,
		c.CacheRepo,
		domain.NewRanking(feeds),
		c.Metrics,
		logger.WithComponent(log, "aggregation"),
		usecase.AggregationOptions{
			Timeout:  cfg.Aggregation.Timeout,
			Limit:    cfg.Aggregation.Limit,
			CacheTTL: cfg.Cache.SearchCacheTTL,
		},
	)

	c.RefreshUC = usecase.NewRefreshUseCase(
		c.ServiceRepo,
		c.Providers,
		c.LeaseRepo,
		c.CacheRepo,
		c.Metrics,
		logger.WithComponent(log, "refresh"),
		usecase.RefreshOptions{
			BatchSize: cfg.Refresh.BatchSize,
			LeaseTTL:  cfg.Refresh.LeaseTTL,
			RadiusCap: cfg.Refresh.PlacesRadius,
		},
	)

	c.ServiceUC = usecase.NewServiceUseCase(c.ServiceRepo, c.CacheRepo, logger.WithComponent(log, "services"))

	return nil
}

// buildProviders - адаптеры в порядке слияния: OSM, GooglePlaces, relief ленты
func (c *Container) buildProviders() ([]repository.ProviderRepository, error) {
	cfg := c.Config
	var providers []repository.ProviderRepository

	if cfg.Overpass.Enabled {
		client := c.fetchClient("overpass", cfg.Overpass.RateLimit)
		providers = append(providers, overpass.NewAdapter(cfg.Overpass, client, logger.WithComponent(c.Logger, "overpass")))
	}

	if cfg.Places.Enabled && cfg.Places.APIKey != "" {
		var geo repository.GeoResolver
		if cfg.Geocoding.APIKey != "" {
			resolver, err := geocoding.NewResolver(
				cfg.Geocoding,
				cfg.Cache,
				c.fetchClient("geocoding", cfg.Places.RateLimit),
				c.CacheRepo,
				logger.WithComponent(c.Logger, "geocoding"),
			)
			if err != nil {
				return nil, err
			}
			geo = resolver
		}
		client := c.fetchClient("places", cfg.Places.RateLimit)
		providers = append(providers, places.NewAdapter(cfg.Places, client, geo, logger.WithComponent(c.Logger, "places")))
	} else if cfg.Places.Enabled {
		c.Logger.Warn("Google Places enabled without PLACES_API_KEY, provider disabled")
	}

	for _, name := range cfg.RejectedReliefFeeds {
		c.Logger.Warn("Relief feed skipped: name is reserved or duplicated", zap.String("feed", name))
	}
	for _, feed := range cfg.ReliefFeeds {
		client := c.fetchClient("relief:"+feed.Name, 0)
		providers = append(providers, relieffeed.NewAdapter(feed, client, c.Logger))
	}

	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Source().String())
	}
	c.Logger.Info("Providers configured", zap.Strings("providers", names))

	return providers, nil
}

func (c *Container) fetchClient(name string, rateLimit float64) *fetch.Client {
	return fetch.NewClient(name, fetch.ConfigFrom(c.Config.Fetch, rateLimit), c.Logger, fetch.WithMetrics(c.Metrics))
}

// Close закрывает подключения в обратном порядке
func (c *Container) Close(ctx context.Context) {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Error("Failed to close Redis connection", zap.Error(err))
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Logger.Error("Failed to close PostgreSQL connection", zap.Error(err))
		}
	}
	if c.shutdownTracing != nil {
		if err := c.shutdownTracing(ctx); err != nil {
			c.Logger.Error("Failed to shutdown tracing", zap.Error(err))
		}
	}
}
