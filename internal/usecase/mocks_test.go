package usecase_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/service-aggregator/internal/domain"
)

// MockServiceRepository is a mock of ServiceRepository
type MockServiceRepository struct {
	mock.Mock
}

func (m *MockServiceRepository) List(ctx context.Context, filter domain.ServiceFilter) ([]domain.Service, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Service), args.Error(1)
}

func (m *MockServiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Service), args.Error(1)
}

func (m *MockServiceRepository) Create(ctx context.Context, service *domain.Service) error {
	args := m.Called(ctx, service)
	return args.Error(0)
}

func (m *MockServiceRepository) Update(ctx context.Context, service *domain.Service) error {
	args := m.Called(ctx, service)
	return args.Error(0)
}

func (m *MockServiceRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockServiceRepository) UpsertByExternalID(ctx context.Context, services []domain.Service, batchSize int) (int, error) {
	args := m.Called(ctx, services, batchSize)
	return args.Int(0), args.Error(1)
}

func (m *MockServiceRepository) ReplaceByCountry(ctx context.Context, source domain.Source, country string, services []domain.Service) (int, error) {
	args := m.Called(ctx, source, country, services)
	return args.Int(0), args.Error(1)
}

func (m *MockServiceRepository) CountBySource(ctx context.Context, source domain.Source, country string) (int, error) {
	args := m.Called(ctx, source, country)
	return args.Int(0), args.Error(1)
}

// MockCacheRepository is a mock of CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepository) DeleteByPrefix(ctx context.Context, prefix string) error {
	args := m.Called(ctx, prefix)
	return args.Error(0)
}

// memoryCache - CacheRepository в памяти, для сценариев с несколькими запросами подряд
type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items[key], nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *memoryCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok, nil
}

func (c *memoryCache) DeleteByPrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
	return nil
}

// MockLeaseRepository is a mock of LeaseRepository
type MockLeaseRepository struct {
	mock.Mock
}

func (m *MockLeaseRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockLeaseRepository) Release(ctx context.Context, key, token string) error {
	args := m.Called(ctx, key, token)
	return args.Error(0)
}

// fakeProvider - провайдер с управляемой задержкой, ошибкой и panic
type fakeProvider struct {
	source   domain.Source
	services []domain.Service
	byType   map[domain.ServiceType][]domain.Service
	err      error
	errTypes map[domain.ServiceType]error
	delay    time.Duration
	panics   bool

	mu      sync.Mutex
	queries []domain.SearchQuery
}

func (p *fakeProvider) Source() domain.Source { return p.source }

func (p *fakeProvider) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Service, error) {
	p.mu.Lock()
	p.queries = append(p.queries, q)
	p.mu.Unlock()

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.panics {
		panic("provider exploded")
	}
	if err, ok := p.errTypes[q.Type]; ok {
		return nil, err
	}
	if p.err != nil {
		return nil, p.err
	}
	if p.byType != nil {
		return p.byType[q.Type], nil
	}
	return p.services, nil
}

func (p *fakeProvider) Queries() []domain.SearchQuery {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.SearchQuery, len(p.queries))
	copy(out, p.queries)
	return out
}

func strPtr(s string) *string { return &s }

func manualService(name string) domain.Service {
	return domain.Service{
		ID:        uuid.New(),
		Name:      name,
		Type:      domain.ServiceTypeClinic,
		Latitude:  31.95,
		Longitude: 35.93,
		Source:    domain.SourceManual,
		Country:   "Jordan",
		CreatedBy: strPtr("user-1"),
	}
}

func providerService(source domain.Source, extID string) domain.Service {
	return domain.Service{
		Name:       fmt.Sprintf("%s %s", source, extID),
		Type:       domain.ServiceTypeClinic,
		Latitude:   31.95,
		Longitude:  35.93,
		Languages:  []string{},
		Source:     source,
		ExternalID: strPtr(extID),
		Country:    "Jordan",
	}
}

func names(services []domain.Service) []string {
	out := make([]string, 0, len(services))
	for _, s := range services {
		out = append(out, s.Name)
	}
	return out
}
