package geocoding

import (
	"context"
	"fmt"
	"net/url"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/service-aggregator/internal/config"
	"github.com/service-aggregator/internal/domain"
	"github.com/service-aggregator/internal/domain/repository"
	"github.com/service-aggregator/internal/infrastructure/fetch"
	apperrors "github.com/service-aggregator/internal/pkg/errors"
)

const cacheKeyPrefix = "geo:country:"

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		AddressComponents []struct {
			LongName  string   `json:"long_name"`
			ShortName string   `json:"short_name"`
			Types     []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
}

// Resolver - обратное геокодирование координат в название страны.
// Результаты запоминаются в процессе (LRU) и в Redis.
type Resolver struct {
	client  *fetch.Client
	baseURL string
	apiKey  string
	memo    *lru.Cache[string, string]
	cache   repository.CacheRepository
	ttl     time.Duration
	logger  *zap.Logger
}

// NewResolver; cache может быть nil
func NewResolver(
	cfg config.GeocodingConfig,
	cacheCfg config.CacheConfig,
	client *fetch.Client,
	cache repository.CacheRepository,
	logger *zap.Logger,
) (*Resolver, error) {
	size := cacheCfg.GeoCacheSize
	if size <= 0 {
		size = 1024
	}
	memo, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create geo cache: %w", err)
	}

	return &Resolver{
		client:  client,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		memo:    memo,
		cache:   cache,
		ttl:     cacheCfg.GeoCacheTTL,
		logger:  logger,
	}, nil
}

func (r *Resolver) ResolveCountry(ctx context.Context, point domain.Point) (string, error) {
	if !point.Valid() {
		return "", apperrors.Validation("coordinates out of range: %f,%f", point.Lat, point.Lon)
	}

	key := point.Key()
	if country, ok := r.memo.Get(key); ok {
		return country, nil
	}

	if r.cache != nil {
		cached, err := r.cache.Get(ctx, cacheKeyPrefix+key)
		if err != nil {
			r.logger.Warn("Geo cache read failed", zap.String("key", key), zap.Error(err))
		} else if len(cached) > 0 {
			country := string(cached)
			r.memo.Add(key, country)
			return country, nil
		}
	}

	country, err := r.lookup(ctx, point)
	if err != nil {
		return "", err
	}

	r.memo.Add(key, country)
	if r.cache != nil {
		if err := r.cache.Set(ctx, cacheKeyPrefix+key, []byte(country), r.ttl); err != nil {
			r.logger.Warn("Geo cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	r.logger.Debug("Country resolved",
		zap.Float64("lat", point.Lat),
		zap.Float64("lon", point.Lon),
		zap.String("country", country))
	return country, nil
}

func (r *Resolver) lookup(ctx context.Context, point domain.Point) (string, error) {
	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%f,%f", point.Lat, point.Lon))
	params.Set("result_type", "country")
	params.Set("language", "en")
	params.Set("key", r.apiKey)

	var resp geocodeResponse
	if err := r.client.GetJSON(ctx, r.baseURL+"?"+params.Encode(), &resp); err != nil {
		return "", err
	}

	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return "", apperrors.ProviderData("no country for coordinates %s", point.Key())
	default:
		return "", apperrors.ProviderData("geocoding status %s: %s", resp.Status, resp.ErrorMessage)
	}

	for _, result := range resp.Results {
		for _, component := range result.AddressComponents {
			for _, t := range component.Types {
				if t == "country" {
					return component.LongName, nil
				}
			}
		}
	}
	return "", apperrors.ProviderData("geocoding response has no country component")
}
