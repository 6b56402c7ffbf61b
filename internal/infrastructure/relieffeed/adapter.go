package relieffeed

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/service-aggregator/internal/config"
	"github.com/service-aggregator/internal/domain"
	"github.com/service-aggregator/internal/infrastructure/fetch"
	"github.com/service-aggregator/internal/pkg/dedupe"
	apperrors "github.com/service-aggregator/internal/pkg/errors"
)

// sectors - гуманитарные секторы (кластеры) для каждого типа
var sectors = map[domain.ServiceType][]string{
	domain.ServiceTypeClinic:    {"health"},
	domain.ServiceTypeShelter:   {"shelter", "cccm"},
	domain.ServiceTypeLegal:     {"protection"},
	domain.ServiceTypeFood:      {"food_security"},
	domain.ServiceTypeEducation: {"education"},
}

const otherSector = "other"

func sectorsFor(t domain.ServiceType) []string {
	if s, ok := sectors[t]; ok {
		return s
	}
	return []string{otherSector}
}

type feedItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Sector      string   `json:"sector"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	Address     string   `json:"address"`
	Phone       string   `json:"phone"`
	Email       string   `json:"email"`
	Website     string   `json:"website"`
	Hours       string   `json:"hours"`
	Languages   []string `json:"languages"`
	Description string   `json:"description"`
}

type feedResponse struct {
	Data  []feedItem `json:"data"`
	Error string     `json:"error"`
}

// Adapter - одна лента гуманитарной организации, source равен имени ленты
type Adapter struct {
	name   string
	url    string
	client *fetch.Client
	logger *zap.Logger
}

func NewAdapter(cfg config.ReliefFeedConfig, client *fetch.Client, logger *zap.Logger) *Adapter {
	return &Adapter{
		name:   cfg.Name,
		url:    cfg.URL,
		client: client,
		logger: logger.With(zap.String("feed", cfg.Name)),
	}
}

func (a *Adapter) Source() domain.Source { return domain.Source(a.name) }

func (a *Adapter) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Service, error) {
	if q.Country == "" {
		return nil, apperrors.Validation("relief feed %s requires country", a.name)
	}

	secs := sectorsFor(q.Type)
	results := make([][]domain.Service, len(secs))
	errs := make([]error, len(secs))

	var g errgroup.Group
	for i, sector := range secs {
		g.Go(func() error {
			results[i], errs[i] = a.searchSector(ctx, q, sector)
			return nil
		})
	}
	_ = g.Wait()

	var merged []domain.Service
	failed := 0
	for i, sector := range secs {
		if errs[i] != nil {
			failed++
			a.logger.Warn("Relief feed sector query failed",
				zap.String("sector", sector),
				zap.String("country", q.Country),
				zap.Error(errs[i]))
			continue
		}
		merged = append(merged, results[i]...)
	}
	if failed == len(secs) {
		return nil, fmt.Errorf("relief feed %s: all %d sector queries failed: %w", a.name, failed, stderrors.Join(errs...))
	}

	return dedupe.Dedupe(merged, domain.Service.IdentityKey), nil
}

func (a *Adapter) searchSector(ctx context.Context, q domain.SearchQuery, sector string) ([]domain.Service, error) {
	params := url.Values{}
	params.Set("country", q.Country)
	params.Set("sector", sector)

	sep := "?"
	if strings.Contains(a.url, "?") {
		sep = "&"
	}

	var resp feedResponse
	if err := a.client.GetJSON(ctx, a.url+sep+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, apperrors.ProviderData("relief feed %s: %s", a.name, resp.Error)
	}

	services := make([]domain.Service, 0, len(resp.Data))
	for _, item := range resp.Data {
		s, err := a.toService(item, q)
		if err != nil {
			a.logger.Debug("Skipping feed item", zap.String("id", item.ID), zap.Error(err))
			continue
		}
		services = append(services, s)
	}
	return services, nil
}

func (a *Adapter) toService(item feedItem, q domain.SearchQuery) (domain.Service, error) {
	if item.ID == "" || strings.TrimSpace(item.Name) == "" {
		return domain.Service{}, apperrors.Validation("feed item without id or name")
	}
	if item.Lat == nil || item.Lng == nil {
		return domain.Service{}, apperrors.Validation("feed item %s has no coordinates", item.ID)
	}
	point := domain.Point{Lat: *item.Lat, Lon: *item.Lng}
	if !point.Valid() {
		return domain.Service{}, apperrors.Validation("feed item %s has invalid coordinates", item.ID)
	}
	if q.BBox != nil && !q.BBox.Contains(point) {
		return domain.Service{}, apperrors.Validation("feed item %s is outside bbox", item.ID)
	}

	externalID := item.ID
	return domain.Service{
		Name:        strings.TrimSpace(item.Name),
		Type:        q.Type,
		Address:     item.Address,
		Latitude:    point.Lat,
		Longitude:   point.Lon,
		Phone:       item.Phone,
		Email:       item.Email,
		Website:     item.Website,
		Hours:       item.Hours,
		Languages:   domain.NormalizeLanguages(item.Languages),
		Description: item.Description,
		Source:      a.Source(),
		ExternalID:  &externalID,
		Country:     q.Country,
	}, nil
}
