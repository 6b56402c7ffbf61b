package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/service-aggregator/internal/domain"
)

func validService() domain.Service {
	return domain.Service{
		Name:      "Al Bashir Clinic",
		Type:      domain.ServiceTypeClinic,
		Latitude:  31.95,
		Longitude: 35.93,
		Languages: []string{"ar", "en"},
		Source:    domain.SourceManual,
		Country:   "Jordan",
	}
}

func TestValidate_Service(t *testing.T) {
	extID := "node/42"

	tests := []struct {
		name    string
		mutate  func(s *domain.Service)
		wantErr string
	}{
		{name: "valid manual", mutate: func(s *domain.Service) {}},
		{name: "valid provider", mutate: func(s *domain.Service) {
			s.Source = domain.SourceOSM
			s.ExternalID = &extID
		}},
		{name: "missing name", mutate: func(s *domain.Service) { s.Name = "" }, wantErr: "Name"},
		{name: "bad type", mutate: func(s *domain.Service) { s.Type = "hospital" }, wantErr: "Type"},
		{name: "latitude out of range", mutate: func(s *domain.Service) { s.Latitude = 91 }, wantErr: "Latitude"},
		{name: "longitude out of range", mutate: func(s *domain.Service) { s.Longitude = -181 }, wantErr: "Longitude"},
		{name: "unnormalized language", mutate: func(s *domain.Service) { s.Languages = []string{"English"} }, wantErr: "Languages"},
		{name: "provider without external id", mutate: func(s *domain.Service) { s.Source = domain.SourceGooglePlaces }, wantErr: "ExternalID"},
		{name: "manual with external id", mutate: func(s *domain.Service) { s.ExternalID = &extID }, wantErr: "ExternalID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validService()
			tt.mutate(&s)

			err := Validate(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, FieldErrors(err), tt.wantErr)
		})
	}
}
