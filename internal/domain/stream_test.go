package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshRequestEvent_HasBBox(t *testing.T) {
	tests := []struct {
		name     string
		event    RefreshRequestEvent
		expected bool
	}{
		{
			name:     "bbox present",
			event:    RefreshRequestEvent{Provider: "OSM", Country: "Jordan", BBox: strPtr("29.1,34.9,33.4,39.3")},
			expected: true,
		},
		{
			name:     "bbox empty string",
			event:    RefreshRequestEvent{Provider: "OSM", Country: "Jordan", BBox: strPtr("")},
			expected: false,
		},
		{
			name:     "bbox nil",
			event:    RefreshRequestEvent{Provider: "OSM", Country: "Jordan"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.event.HasBBox())
		})
	}
}

func TestRefreshRequestEvent_JSON(t *testing.T) {
	id := uuid.New()
	raw := `{"request_id":"` + id.String() + `","provider":"GooglePlaces","country":"Kenya"}`

	var event RefreshRequestEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &event))

	assert.Equal(t, id, event.RequestID)
	assert.Equal(t, "GooglePlaces", event.Provider)
	assert.Equal(t, "Kenya", event.Country)
	assert.Nil(t, event.BBox)
}

func strPtr(s string) *string {
	return &s
}
