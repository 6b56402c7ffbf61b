package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/service-aggregator/internal/domain"
	"github.com/service-aggregator/internal/domain/repository"
	apperrors "github.com/service-aggregator/internal/pkg/errors"
	"github.com/service-aggregator/internal/pkg/metrics"
	"github.com/service-aggregator/internal/usecase"
	"github.com/service-aggregator/internal/usecase/dto"
)

func newAggregation(store repository.ServiceRepository, cache repository.CacheRepository, providers ...repository.ProviderRepository) *usecase.AggregationUseCase {
	var feeds []string
	for _, p := range providers {
		feeds = append(feeds, string(p.Source()))
	}
	opts := usecase.AggregationOptions{Timeout: 2 * time.Second, Limit: 5, CacheTTL: time.Minute}
	return usecase.NewAggregationUseCase(store, providers, cache, domain.NewRanking(feeds), metrics.NewNop(), zap.NewNop(), opts)
}

func manualStore(services ...domain.Service) *MockServiceRepository {
	store := new(MockServiceRepository)
	store.On("List", mock.Anything, domain.ServiceFilter{
		Type:    domain.ServiceTypeClinic,
		Country: "Jordan",
		Source:  domain.SourceManual,
		Limit:   5,
	}).Return(services, nil)
	return store
}

func TestAggregate_JordanClinicScenario(t *testing.T) {
	store := manualStore(manualService("Manual A"), manualService("Manual B"))
	osm := &fakeProvider{source: domain.SourceOSM, services: []domain.Service{
		providerService(domain.SourceOSM, "node/1"),
		providerService(domain.SourceOSM, "node/2"),
		providerService(domain.SourceOSM, "node/1"),
	}}
	google := &fakeProvider{source: domain.SourceGooglePlaces, services: []domain.Service{
		providerService(domain.SourceGooglePlaces, "g1"),
		providerService(domain.SourceGooglePlaces, "g2"),
		providerService(domain.SourceGooglePlaces, "g3"),
		providerService(domain.SourceGooglePlaces, "g4"),
	}}

	resp := newAggregation(store, nil, osm, google).Aggregate(context.Background(), domain.ServiceTypeClinic, "Jordan", nil)

	require.Nil(t, resp.Error)
	assert.Equal(t, 5, resp.Total())
	assert.Equal(t, []string{"Manual A", "Manual B"}, names(resp.Internal))
	assert.Equal(t, []string{"OSM node/1", "OSM node/2"}, names(resp.OSM))
	assert.Equal(t, []string{"GooglePlaces g1"}, names(resp.Google))

	for _, s := range resp.Internal {
		assert.Equal(t, domain.PriorityVerified, s.Priority)
		assert.Equal(t, domain.BadgeVerified, s.Badge)
	}
	assert.Equal(t, domain.PriorityGooglePlaces, resp.Google[0].Priority)
	store.AssertExpectations(t)
}

func TestAggregate_DeterministicUnderDelays(t *testing.T) {
	delays := [][2]time.Duration{
		{0, 0},
		{40 * time.Millisecond, 0},
		{0, 40 * time.Millisecond},
		{20 * time.Millisecond, 5 * time.Millisecond},
	}

	var first *dto.SearchResponse
	for _, d := range delays {
		store := manualStore(manualService("Manual A"))
		osm := &fakeProvider{source: domain.SourceOSM, delay: d[0], services: []domain.Service{
			providerService(domain.SourceOSM, "node/1"),
			providerService(domain.SourceOSM, "node/2"),
		}}
		google := &fakeProvider{source: domain.SourceGooglePlaces, delay: d[1], services: []domain.Service{
			providerService(domain.SourceGooglePlaces, "g1"),
			providerService(domain.SourceGooglePlaces, "g2"),
			providerService(domain.SourceGooglePlaces, "g3"),
		}}

		resp := newAggregation(store, nil, osm, google).Aggregate(context.Background(), domain.ServiceTypeClinic, "Jordan", nil)
		require.Nil(t, resp.Error)

		if first == nil {
			first = resp
			continue
		}
		assert.Equal(t, names(first.Internal), names(resp.Internal))
		assert.Equal(t, names(first.OSM), names(resp.OSM))
		assert.Equal(t, names(first.Google), names(resp.Google))
	}
	assert.Equal(t, []string{"GooglePlaces g1", "GooglePlaces g2"}, names(first.Google))
}

func TestAggregate_PartialFailure(t *testing.T) {
	store := manualStore(manualService("Manual A"))
	osm := &fakeProvider{source: domain.SourceOSM, err: errors.New("overpass unavailable")}
	google := &fakeProvider{source: domain.SourceGooglePlaces, services: []domain.Service{
		providerService(domain.SourceGooglePlaces, "g1"),
	}}

	resp := newAggregation(store, nil, osm, google).Aggregate(context.Background(), domain.ServiceTypeClinic, "Jordan", nil)

	assert.Nil(t, resp.Error)
	assert.Len(t, resp.Internal, 1)
	assert.Empty(t, resp.OSM)
	assert.NotNil(t, resp.OSM, "empty buckets serialize as []")
	assert.Len(t, resp.Google, 1)
	assert.Equal(t, []string{"OSM"}, resp.FailedSources)
}

func TestAggregate_PanicIsIsolated(t *testing.T) {
	store := manualStore(manualService("Manual A"))
	osm := &fakeProvider{source: domain.SourceOSM, panics: true}
	google := &fakeProvider{source: domain.SourceGooglePlaces, services: []domain.Service{
		providerService(domain.SourceGooglePlaces, "g1"),
	}}

	resp := newAggregation(store, nil, osm, google).Aggregate(context.Background(), domain.ServiceTypeClinic, "Jordan", nil)

	assert.Nil(t, resp.Error)
	assert.Len(t, resp.Google, 1)
	assert.Equal(t, []string{"OSM"}, resp.FailedSources)
}

func TestAggregate_TotalFailure(t *testing.T) {
	store := new(MockServiceRepository)
	store.On("List", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
	osm := &fakeProvider{source: domain.SourceOSM, err: errors.New("timeout")}
	google := &fakeProvider{source: domain.SourceGooglePlaces, err: errors.New("quota")}

	resp := newAggregation(store, nil, osm, google).Aggregate(context.Background(), domain.ServiceTypeClinic, "Jordan", nil)

	require.NotNil(t, resp.Error)
	assert.Equal(t, usecase.AllSourcesFailedMessage, *resp.Error)
	assert.Zero(t, resp.Total())
	assert.ElementsMatch(t, []string{"manual", "OSM", "GooglePlaces"}, resp.FailedSources)
}

func TestAggregate_SlowSourceCountsAsFailed(t *testing.T) {
	store := manualStore(manualService("Manual A"))
	osm := &fakeProvider{source: domain.SourceOSM, delay: time.Second, services: []domain.Service{
		providerService(domain.SourceOSM, "node/1"),
	}}

	opts := usecase.AggregationOptions{Timeout: 50 * time.Millisecond, Limit: 5}
	uc := usecase.NewAggregationUseCase(store, []repository.ProviderRepository{osm}, nil,
		domain.NewRanking(nil), nil, zap.NewNop(), opts)

	start := time.Now()
	resp := uc.Aggregate(context.Background(), domain.ServiceTypeClinic, "Jordan", nil)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Nil(t, resp.Error)
	assert.Len(t, resp.Internal, 1)
	assert.Empty(t, resp.OSM)
	assert.Equal(t, []string{"OSM"}, resp.FailedSources)
}

func TestAggregate_ReliefBuckets(t *testing.T) {
	store := manualStore()
	osm := &fakeProvider{source: domain.SourceOSM, services: []domain.Service{
		providerService(domain.SourceOSM, "node/1"),
		providerService(domain.SourceOSM, "node/2"),
		providerService(domain.SourceOSM, "node/3"),
	}}
	unhcr := &fakeProvider{source: "UNHCR", services: []domain.Service{
		providerService("UNHCR", "u1"),
		providerService("UNHCR", "u2"),
	}}
	wfp := &fakeProvider{source: "WFP", services: []domain.Service{
		providerService("WFP", "w1"),
	}}

	resp := newAggregation(store, nil, osm, unhcr, wfp).Aggregate(context.Background(), domain.ServiceTypeClinic, "Jordan", nil)

	require.Nil(t, resp.Error)
	assert.Len(t, resp.OSM, 3)
	assert.Equal(t, []string{"UNHCR u1", "UNHCR u2"}, names(resp.Relief["UNHCR"]))
	require.Contains(t, resp.Relief, "WFP")
	assert.Empty(t, resp.Relief["WFP"], "truncation consumed the lower priority feed")
	assert.Equal(t, "UNHCR", resp.Relief["UNHCR"][0].Badge)
}

func TestSearch_CachesOnlyFullSuccess(t *testing.T) {
	ctx := context.Background()

	t.Run("full success is cached", func(t *testing.T) {
		store := manualStore(manualService("Manual A"))
		cache := new(MockCacheRepository)
		cache.On("Get", mock.Anything, "search:Jordan:clinic:-").Return(nil, nil)
		cache.On("Set", mock.Anything, "search:Jordan:clinic:-", mock.Anything, time.Minute).Return(nil)
		osm := &fakeProvider{source: domain.SourceOSM}

		resp, cached, err := newAggregation(store, cache, osm).Search(ctx, dto.SearchRequest{Type: "clinic", Country: "Jordan"})
		require.NoError(t, err)
		assert.False(t, cached)
		assert.Len(t, resp.Internal, 1)
		cache.AssertExpectations(t)
	})

	t.Run("degraded result is not cached", func(t *testing.T) {
		store := manualStore(manualService("Manual A"))
		cache := new(MockCacheRepository)
		cache.On("Get", mock.Anything, mock.Anything).Return(nil, nil)
		osm := &fakeProvider{source: domain.SourceOSM, err: errors.New("boom")}

		_, _, err := newAggregation(store, cache, osm).Search(ctx, dto.SearchRequest{Type: "clinic", Country: "Jordan"})
		require.NoError(t, err)
		cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cache hit skips sources", func(t *testing.T) {
		store := new(MockServiceRepository)
		cache := new(MockCacheRepository)
		msg := dto.SearchResponse{Internal: []domain.Service{manualService("Cached")}}
		data, err := json.Marshal(msg)
		require.NoError(t, err)
		cache.On("Get", mock.Anything, "search:Jordan:clinic:31.950,35.930").Return(data, nil)
		osm := &fakeProvider{source: domain.SourceOSM}

		lat, lng := 31.95, 35.93
		resp, cached, err := newAggregation(store, cache, osm).Search(ctx, dto.SearchRequest{
			Type: "Clinic", Country: " Jordan ", Lat: &lat, Lng: &lng,
		})
		require.NoError(t, err)
		assert.True(t, cached)
		assert.Equal(t, []string{"Cached"}, names(resp.Internal))
		assert.Empty(t, osm.Queries())
		store.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})
}

func TestSearch_CountryCaseVariantsAreCachedSeparately(t *testing.T) {
	ctx := context.Background()

	store := new(MockServiceRepository)
	store.On("List", mock.Anything, mock.MatchedBy(func(f domain.ServiceFilter) bool {
		return f.Country == "jordan"
	})).Return([]domain.Service{}, nil)
	store.On("List", mock.Anything, mock.MatchedBy(func(f domain.ServiceFilter) bool {
		return f.Country == "Jordan"
	})).Return([]domain.Service{manualService("Manual A"), manualService("Manual B")}, nil)

	uc := newAggregation(store, newMemoryCache(), &fakeProvider{source: domain.SourceOSM})

	lower, cached, err := uc.Search(ctx, dto.SearchRequest{Type: "clinic", Country: "jordan"})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Empty(t, lower.Internal)

	exact, cached, err := uc.Search(ctx, dto.SearchRequest{Type: "clinic", Country: "Jordan"})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Len(t, exact.Internal, 2)

	again, cached, err := uc.Search(ctx, dto.SearchRequest{Type: "clinic", Country: " Jordan "})
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Len(t, again.Internal, 2)
}

func TestSearch_Validation(t *testing.T) {
	uc := newAggregation(new(MockServiceRepository), nil)
	ctx := context.Background()

	_, _, err := uc.Search(ctx, dto.SearchRequest{Type: "hospital", Country: "Jordan"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidServiceType)

	_, _, err = uc.Search(ctx, dto.SearchRequest{Type: "clinic", Country: "  "})
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

	lat, lng := 95.0, 10.0
	_, _, err = uc.Search(ctx, dto.SearchRequest{Type: "clinic", Country: "Jordan", Lat: &lat, Lng: &lng})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCoordinates)
}

func TestSearch_PassesLocationToProviders(t *testing.T) {
	store := manualStore()
	osm := &fakeProvider{source: domain.SourceOSM}

	lat, lng := 31.95, 35.93
	_, _, err := newAggregation(store, nil, osm).Search(context.Background(), dto.SearchRequest{
		Type: "clinic", Country: "Jordan", Lat: &lat, Lng: &lng,
	})
	require.NoError(t, err)

	queries := osm.Queries()
	require.Len(t, queries, 1)
	require.NotNil(t, queries[0].Location)
	assert.Equal(t, domain.Point{Lat: 31.95, Lon: 35.93}, *queries[0].Location)
	assert.Equal(t, "Jordan", queries[0].Country)
}
