package overpass

import (
	"fmt"
	"sort"
	"strings"

	"github.com/service-aggregator/internal/domain"
	apperrors "github.com/service-aggregator/internal/pkg/errors"
)

type response struct {
	Elements []element `json:"elements"`
	Remark   string    `json:"remark"`
}

// isError - Overpass отвечает 200 с remark при таймауте или нехватке памяти
func (r response) isError() bool {
	return strings.Contains(r.Remark, "runtime error") || strings.Contains(r.Remark, "Query timed out")
}

type element struct {
	Type   string   `json:"type"`
	ID     int64    `json:"id"`
	Lat    *float64 `json:"lat"`
	Lon    *float64 `json:"lon"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Tags map[string]string `json:"tags"`
}

func (e element) externalID() string {
	return fmt.Sprintf("%s/%d", e.Type, e.ID)
}

func (e element) coordinates() (float64, float64, bool) {
	if e.Lat != nil && e.Lon != nil {
		return *e.Lat, *e.Lon, true
	}
	if e.Center != nil {
		return e.Center.Lat, e.Center.Lon, true
	}
	return 0, 0, false
}

func (e element) tag(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(e.Tags[k]); v != "" {
			return v
		}
	}
	return ""
}

func (e element) address() string {
	street := e.tag("addr:street")
	if house := e.tag("addr:housenumber"); house != "" && street != "" {
		street = street + " " + house
	}
	parts := make([]string, 0, 4)
	for _, p := range []string{street, e.tag("addr:city"), e.tag("addr:postcode")} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return e.tag("addr:full")
	}
	return strings.Join(parts, ", ")
}

// languages собирает теги language:xx=yes и languages
func (e element) languages() []string {
	var raw []string
	keys := make([]string, 0, len(e.Tags))
	for k := range e.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if code, ok := strings.CutPrefix(k, "language:"); ok && e.Tags[k] == "yes" {
			raw = append(raw, code)
		}
	}
	if v := e.tag("languages", "language"); v != "" {
		raw = append(raw, v)
	}
	return domain.NormalizeLanguages(raw)
}

func (e element) toService(t domain.ServiceType, country string) (domain.Service, error) {
	name := e.tag("name:en", "name")
	if name == "" {
		return domain.Service{}, apperrors.Validation("element %s has no name", e.externalID())
	}
	lat, lon, ok := e.coordinates()
	if !ok {
		return domain.Service{}, apperrors.Validation("element %s has no coordinates", e.externalID())
	}

	externalID := e.externalID()
	return domain.Service{
		Name:        name,
		Type:        t,
		Address:     e.address(),
		Latitude:    lat,
		Longitude:   lon,
		Phone:       e.tag("phone", "contact:phone"),
		Email:       e.tag("email", "contact:email"),
		Website:     e.tag("website", "contact:website", "url"),
		Hours:       e.tag("opening_hours"),
		Languages:   e.languages(),
		Description: e.tag("description:en", "description"),
		Source:      domain.SourceOSM,
		ExternalID:  &externalID,
		Country:     country,
	}, nil
}
