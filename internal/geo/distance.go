package geo

import "math"

const earthRadius = 6371000 // meters

// Haversine returns the great-circle distance between a and b in meters.
func Haversine(a, b Coordinate) float64 {
	if a == b {
		return 0
	}

	lat1Rad := a.Lat * math.Pi / 180
	lat2Rad := b.Lat * math.Pi / 180
	deltaLat := (b.Lat - a.Lat) * math.Pi / 180
	deltaLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadius * c
}

// HaversineInM is Haversine rounded to the nearest meter.
func HaversineInM(a, b Coordinate) int {
	return int(math.Round(Haversine(a, b)))
}

// PathLength returns the cumulative distance along points. The result has
// the same length as points and starts at zero.
func PathLength(points []Coordinate) []float64 {
	cumulative := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		cumulative[i] = cumulative[i-1] + Haversine(points[i-1], points[i])
	}
	return cumulative
}
