package domain

import (
	"fmt"
	"strconv"
	"strings"
)

type Point struct {
	Lat float64 `json:"lat" db:"lat"`
	Lon float64 `json:"lon" db:"lon"`
}

// Valid проверяет диапазоны WGS84
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Key - ключ точки для кеширования, округлён до ~100м
func (p Point) Key() string {
	return fmt.Sprintf("%.3f,%.3f", p.Lat, p.Lon)
}

type BoundingBox struct {
	MinLat float64 `json:"min_lat" db:"min_lat"`
	MinLon float64 `json:"min_lon" db:"min_lon"`
	MaxLat float64 `json:"max_lat" db:"max_lat"`
	MaxLon float64 `json:"max_lon" db:"max_lon"`
}

// ParseBoundingBox разбирает строку "minLat,minLon,maxLat,maxLon"
func ParseBoundingBox(s string) (*BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox must have 4 comma separated values, got %d", len(parts))
	}

	values := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("bbox value %q: %w", part, err)
		}
		values[i] = v
	}

	bbox := &BoundingBox{MinLat: values[0], MinLon: values[1], MaxLat: values[2], MaxLon: values[3]}
	if !bbox.Valid() {
		return nil, fmt.Errorf("bbox %q is out of range or inverted", s)
	}
	return bbox, nil
}

func (b BoundingBox) Valid() bool {
	min := Point{Lat: b.MinLat, Lon: b.MinLon}
	max := Point{Lat: b.MaxLat, Lon: b.MaxLon}
	return min.Valid() && max.Valid() && b.MinLat <= b.MaxLat && b.MinLon <= b.MaxLon
}

func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

func (b BoundingBox) Center() Point {
	return Point{Lat: (b.MinLat + b.MaxLat) / 2, Lon: (b.MinLon + b.MaxLon) / 2}
}

// String - формат Overpass QL: (south,west,north,east)
func (b BoundingBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
}
