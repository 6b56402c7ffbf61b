package places

import (
	"strings"

	"github.com/service-aggregator/internal/domain"
	apperrors "github.com/service-aggregator/internal/pkg/errors"
)

const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

type location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type geometry struct {
	Location *location `json:"location"`
}

// placeSummary - элемент ответа Nearby Search и Text Search
type placeSummary struct {
	PlaceID          string    `json:"place_id"`
	Name             string    `json:"name"`
	Vicinity         string    `json:"vicinity"`
	FormattedAddress string    `json:"formatted_address"`
	Geometry         *geometry `json:"geometry"`
	Types            []string  `json:"types"`
}

type searchResponse struct {
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
	Results      []placeSummary `json:"results"`
}

// placeDetails - результат Place Details
type placeDetails struct {
	PlaceID                  string    `json:"place_id"`
	Name                     string    `json:"name"`
	FormattedAddress         string    `json:"formatted_address"`
	FormattedPhoneNumber     string    `json:"formatted_phone_number"`
	InternationalPhoneNumber string    `json:"international_phone_number"`
	Website                  string    `json:"website"`
	Geometry                 *geometry `json:"geometry"`
	OpeningHours             *struct {
		WeekdayText []string `json:"weekday_text"`
	} `json:"opening_hours"`
	EditorialSummary *struct {
		Overview string `json:"overview"`
	} `json:"editorial_summary"`
}

type detailsResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message"`
	Result       *placeDetails `json:"result"`
}

// candidate - summary с необязательными деталями
type candidate struct {
	summary placeSummary
	details *placeDetails
}

func (c candidate) coordinates() (float64, float64, bool) {
	if c.details != nil && c.details.Geometry != nil && c.details.Geometry.Location != nil {
		return c.details.Geometry.Location.Lat, c.details.Geometry.Location.Lng, true
	}
	if c.summary.Geometry != nil && c.summary.Geometry.Location != nil {
		return c.summary.Geometry.Location.Lat, c.summary.Geometry.Location.Lng, true
	}
	return 0, 0, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func (c candidate) toService(t domain.ServiceType, country string) (domain.Service, error) {
	lat, lng, ok := c.coordinates()
	if !ok {
		return domain.Service{}, apperrors.Validation("place %s has no coordinates", c.summary.PlaceID)
	}

	s := domain.Service{
		Name:      c.summary.Name,
		Type:      t,
		Address:   firstNonEmpty(c.summary.FormattedAddress, c.summary.Vicinity),
		Latitude:  lat,
		Longitude: lng,
		Languages: []string{},
		Source:    domain.SourceGooglePlaces,
		Country:   country,
	}

	if d := c.details; d != nil {
		s.Name = firstNonEmpty(d.Name, s.Name)
		s.Address = firstNonEmpty(d.FormattedAddress, s.Address)
		s.Phone = firstNonEmpty(d.FormattedPhoneNumber, d.InternationalPhoneNumber)
		s.Website = d.Website
		if d.OpeningHours != nil {
			s.Hours = strings.Join(d.OpeningHours.WeekdayText, "; ")
		}
		if d.EditorialSummary != nil {
			s.Description = d.EditorialSummary.Overview
		}
	}

	if s.Name == "" {
		return domain.Service{}, apperrors.Validation("place %s has no name", c.summary.PlaceID)
	}

	externalID := c.summary.PlaceID
	s.ExternalID = &externalID
	return s, nil
}
