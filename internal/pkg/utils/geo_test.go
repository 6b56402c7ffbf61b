package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineDistance(t *testing.T) {
	// Амман - Ирбид ~ 70 км
	d := HaversineDistance(31.9539, 35.9106, 32.5556, 35.85)
	assert.InDelta(t, 67, d, 3)
	assert.Zero(t, HaversineDistance(10, 10, 10, 10))
}

func TestBBoxRadiusMeters(t *testing.T) {
	assert.Equal(t, 50000, BBoxRadiusMeters(29.1, 34.9, 33.4, 39.3, 50000))
	r := BBoxRadiusMeters(31.9, 35.9, 31.91, 35.91, 50000)
	assert.Greater(t, r, 500)
	assert.Less(t, r, 1000)
	assert.Equal(t, 1, BBoxRadiusMeters(1, 1, 1, 1, 0))
}
