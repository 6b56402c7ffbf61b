package overpass

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

// tagFilter - пара ключ=значение тега OSM
type tagFilter struct {
	Key   string
	Value string
}

// categoryTags - теги OSM для каждого типа, порядок определяет порядок результатов
var categoryTags = map[domain.ServiceType][]tagFilter{
	domain.ServiceTypeClinic: {
		{Key: "amenity", Value: "clinic"},
		{Key: "amenity", Value: "hospital"},
		{Key: "amenity", Value: "doctors"},
		{Key: "healthcare", Value: "clinic"},
	},
	domain.ServiceTypeShelter: {
		{Key: "social_facility", Value: "shelter"},
		{Key: "amenity", Value: "shelter"},
	},
	domain.ServiceTypeLegal: {
		{Key: "office", Value: "lawyer"},
		{Key: "office", Value: "ngo"},
	},
	domain.ServiceTypeFood: {
		{Key: "social_facility", Value: "food_bank"},
		{Key: "amenity", Value: "food_bank"},
	},
	domain.ServiceTypeEducation: {
		{Key: "amenity", Value: "school"},
		{Key: "amenity", Value: "college"},
	},
}

var otherTags = []tagFilter{{Key: "amenity", Value: "social_facility"}}

func tagsFor(t domain.ServiceType) []tagFilter {
	if tags, ok := categoryTags[t]; ok {
		return tags
	}
	return otherTags
}

type Adapter struct {
	client       *fetch.Client
	baseURL      string
	queryTimeout int
	logger       *zap.Logger
}

func NewAdapter(cfg config.OverpassConfig, client *fetch.Client, logger *zap.Logger) *Adapter {
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = 25
	}
	return &Adapter{
		client:       client,
		baseURL:      cfg.BaseURL,
		queryTimeout: timeout,
		logger:       logger,
	}
}

func (a *Adapter) Source() domain.Source { return domain.SourceOSM }

// Search выполняет по одному запросу Overpass на каждый тег категории параллельно.
// Результаты собираются в порядке таблицы тегов и дедуплицируются по OSM id.
func (a *Adapter) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Service, error) {
	if q.Country == "" && q.BBox == nil {
		return nil, apperrors.Validation("overpass search requires country or bbox")
	}

	filters := tagsFor(q.Type)
	results := make([][]domain.Service, len(filters))
	errs := make([]error, len(filters))

	var g errgroup.Group
	for i, filter := range filters {
		g.Go(func() error {
			results[i], errs[i] = a.searchCategory(ctx, q, filter)
			return nil
		})
	}
	_ = g.Wait()

	var merged []domain.Service
	failed := 0
	for i, filter := range filters {
		if errs[i] != nil {
			failed++
			a.logger.Warn("Overpass category query failed",
				zap.String("tag", filter.Key+"="+filter.Value),
				zap.String("country", q.Country),
				zap.Error(errs[i]))
			continue
		}
		merged = append(merged, results[i]...)
	}

	if failed == len(filters) {
		return nil, fmt.Errorf("overpass: all %d category queries failed: %w", failed, stderrors.Join(errs...))
	}

	services := dedupe.Dedupe(merged, domain.Service.IdentityKey)

	a.logger.Debug("Overpass search completed",
		zap.String("type", q.Type.String()),
		zap.String("country", q.Country),
		zap.Int("raw", len(merged)),
		zap.Int("unique", len(services)),
		zap.Int("failed_categories", failed))

	return services, nil
}

func (a *Adapter) searchCategory(ctx context.Context, q domain.SearchQuery, filter tagFilter) ([]domain.Service, error) {
	query := buildQuery(q, filter, a.queryTimeout)

	var resp response
	if err := a.client.PostFormJSON(ctx, a.baseURL, url.Values{"data": []string{query}}, &resp); err != nil {
		return nil, err
	}
	if resp.isError() {
		return nil, apperrors.ProviderData("overpass remark: %s", resp.Remark)
	}

	services := make([]domain.Service, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		s, err := el.toService(q.Type, q.Country)
		if err != nil {
			a.logger.Debug("Skipping OSM element",
				zap.String("element", el.externalID()),
				zap.Error(err))
			continue
		}
		services = append(services, s)
	}
	return services, nil
}

// buildQuery собирает Overpass QL: элементы с тегом в границах страны и, опционально, bbox
func buildQuery(q domain.SearchQuery, filter tagFilter, timeout int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n", timeout)

	scope := ""
	if q.Country != "" {
		fmt.Fprintf(&b, "area[\"boundary\"=\"administrative\"][\"admin_level\"=\"2\"][\"name:en\"=\"%s\"]->.country;\n", escape(q.Country))
		scope = "(area.country)"
	}
	if q.BBox != nil {
		scope += "(" + q.BBox.String() + ")"
	}

	tag := fmt.Sprintf("[\"%s\"=\"%s\"]", escape(filter.Key), escape(filter.Value))
	b.WriteString("(\n")
	for _, kind := range []string{"node", "way", "relation"} {
		fmt.Fprintf(&b, "  %s%s%s;\n", kind, tag, scope)
	}
	b.WriteString(");\nout center tags;")
	return b.String()
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
