package places

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/service-aggregator/internal/config"
	"github.com/service-aggregator/internal/domain"
	"github.com/service-aggregator/internal/domain/repository"
	"github.com/service-aggregator/internal/infrastructure/fetch"
	"github.com/service-aggregator/internal/pkg/dedupe"
	apperrors "github.com/service-aggregator/internal/pkg/errors"
)

const detailsFields = "place_id,name,formatted_address,formatted_phone_number,international_phone_number,website,opening_hours,geometry,editorial_summary"

// category - тип Places API и/или ключевое слово поиска
type category struct {
	PlaceType string
	Keyword   string
}

func (c category) String() string {
	if c.PlaceType != "" {
		return c.PlaceType
	}
	return c.Keyword
}

var categories = map[domain.ServiceType][]category{
	domain.ServiceTypeClinic: {
		{PlaceType: "hospital"},
		{PlaceType: "doctor"},
	},
	domain.ServiceTypeShelter: {
		{Keyword: "homeless shelter"},
		{Keyword: "refugee shelter"},
	},
	domain.ServiceTypeLegal: {
		{PlaceType: "lawyer"},
		{Keyword: "legal aid"},
	},
	domain.ServiceTypeFood: {
		{Keyword: "food bank"},
	},
	domain.ServiceTypeEducation: {
		{PlaceType: "school"},
		{PlaceType: "university"},
	},
}

var otherCategories = []category{{Keyword: "humanitarian aid"}}

func categoriesFor(t domain.ServiceType) []category {
	if c, ok := categories[t]; ok {
		return c
	}
	return otherCategories
}

type Adapter struct {
	client            *fetch.Client
	geo               repository.GeoResolver
	baseURL           string
	apiKey            string
	radius            int
	detailConcurrency int
	logger            *zap.Logger
}

// NewAdapter; geo может быть nil, тогда страна берётся из запроса
func NewAdapter(cfg config.PlacesConfig, client *fetch.Client, geo repository.GeoResolver, logger *zap.Logger) *Adapter {
	radius := cfg.RadiusMeters
	if radius <= 0 {
		radius = 10000
	}
	concurrency := cfg.DetailConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Adapter{
		client:            client,
		geo:               geo,
		baseURL:           strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:            cfg.APIKey,
		radius:            radius,
		detailConcurrency: concurrency,
		logger:            logger,
	}
}

func (a *Adapter) Source() domain.Source { return domain.SourceGooglePlaces }

// Search: Nearby Search вокруг точки или Text Search по стране, затем Place Details для уникальных place_id
func (a *Adapter) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Service, error) {
	if q.Location == nil && q.Country == "" {
		return nil, apperrors.Validation("places search requires location or country")
	}

	country := a.resolveCountry(ctx, q)

	cats := categoriesFor(q.Type)
	results := make([][]placeSummary, len(cats))
	errs := make([]error, len(cats))

	var g errgroup.Group
	for i, cat := range cats {
		g.Go(func() error {
			results[i], errs[i] = a.searchCategory(ctx, q, cat)
			return nil
		})
	}
	_ = g.Wait()

	var merged []placeSummary
	failed := 0
	for i, cat := range cats {
		if errs[i] != nil {
			failed++
			a.logger.Warn("Places category search failed",
				zap.String("category", cat.String()),
				zap.String("country", country),
				zap.Error(errs[i]))
			continue
		}
		merged = append(merged, results[i]...)
	}
	if failed == len(cats) {
		return nil, fmt.Errorf("places: all %d category searches failed: %w", failed, stderrors.Join(errs...))
	}

	// дедупликация до запросов деталей, чтобы не запрашивать одно место дважды
	unique := dedupe.Dedupe(merged, func(p placeSummary) string { return p.PlaceID })

	candidates := a.enrich(ctx, unique)

	services := make([]domain.Service, 0, len(candidates))
	for _, c := range candidates {
		s, err := c.toService(q.Type, country)
		if err != nil {
			a.logger.Warn("Dropping place without mandatory fields",
				zap.String("place_id", c.summary.PlaceID),
				zap.Error(err))
			continue
		}
		services = append(services, s)
	}

	a.logger.Debug("Places search completed",
		zap.String("type", q.Type.String()),
		zap.String("country", country),
		zap.Int("raw", len(merged)),
		zap.Int("unique", len(services)),
		zap.Int("failed_categories", failed))

	return services, nil
}

// resolveCountry вызывает геокодер один раз на входную точку
func (a *Adapter) resolveCountry(ctx context.Context, q domain.SearchQuery) string {
	if q.Location == nil || a.geo == nil {
		return q.Country
	}
	country, err := a.geo.ResolveCountry(ctx, *q.Location)
	if err != nil {
		a.logger.Warn("Country resolution failed, using requested country",
			zap.String("country", q.Country),
			zap.Error(err))
		return q.Country
	}
	return country
}

func (a *Adapter) searchCategory(ctx context.Context, q domain.SearchQuery, cat category) ([]placeSummary, error) {
	params := url.Values{}
	params.Set("key", a.apiKey)
	if cat.PlaceType != "" {
		params.Set("type", cat.PlaceType)
	}

	var endpoint string
	if q.Location != nil {
		endpoint = a.baseURL + "/nearbysearch/json"
		params.Set("location", strconv.FormatFloat(q.Location.Lat, 'f', 6, 64)+","+strconv.FormatFloat(q.Location.Lon, 'f', 6, 64))
		radius := a.radius
		if q.RadiusMeters > 0 {
			radius = q.RadiusMeters
		}
		params.Set("radius", strconv.Itoa(radius))
		if cat.Keyword != "" {
			params.Set("keyword", cat.Keyword)
		}
	} else {
		endpoint = a.baseURL + "/textsearch/json"
		term := cat.Keyword
		if term == "" {
			term = strings.ReplaceAll(cat.PlaceType, "_", " ")
		}
		params.Set("query", term+" in "+q.Country)
	}

	var resp searchResponse
	if err := a.client.GetJSON(ctx, endpoint+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	switch resp.Status {
	case statusOK, statusZeroResults:
		return resp.Results, nil
	default:
		return nil, apperrors.ProviderData("places status %s: %s", resp.Status, resp.ErrorMessage)
	}
}

// enrich запрашивает детали с ограниченной параллельностью. Ошибка деталей не отменяет остальные.
func (a *Adapter) enrich(ctx context.Context, summaries []placeSummary) []candidate {
	candidates := make([]candidate, len(summaries))

	g := new(errgroup.Group)
	g.SetLimit(a.detailConcurrency)
	for i, summary := range summaries {
		candidates[i].summary = summary
		g.Go(func() error {
			details, err := a.details(ctx, summary.PlaceID)
			if err != nil {
				a.logger.Warn("Place details failed, keeping summary",
					zap.String("place_id", summary.PlaceID),
					zap.Error(err))
				return nil
			}
			candidates[i].details = details
			return nil
		})
	}
	_ = g.Wait()

	return candidates
}

func (a *Adapter) details(ctx context.Context, placeID string) (*placeDetails, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", detailsFields)
	params.Set("key", a.apiKey)

	var resp detailsResponse
	if err := a.client.GetJSON(ctx, a.baseURL+"/details/json?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Status != statusOK || resp.Result == nil {
		return nil, apperrors.ProviderData("place details status %s: %s", resp.Status, resp.ErrorMessage)
	}
	return resp.Result, nil
}
