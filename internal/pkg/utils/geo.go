package utils

import "math"

const earthRadiusKm = 6371.0

// HaversineDistance вычисляет расстояние между двумя точками в километрах
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0

	lat1Rad := lat1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// BBoxRadiusMeters - радиус окружности, описанной вокруг bbox, ограниченный capMeters
func BBoxRadiusMeters(minLat, minLon, maxLat, maxLon float64, capMeters int) int {
	centerLat := (minLat + maxLat) / 2
	centerLon := (minLon + maxLon) / 2
	radius := int(math.Ceil(HaversineDistance(centerLat, centerLon, maxLat, maxLon) * 1000))
	if capMeters > 0 && radius > capMeters {
		return capMeters
	}
	if radius < 1 {
		return 1
	}
	return radius
}
