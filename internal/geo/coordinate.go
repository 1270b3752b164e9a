// Package geo holds the coordinate primitives shared by the elevation
// and effort packages: great-circle distance and polyline decoding.
package geo

import (
	"fmt"
	"math"
)

// DefaultTolerance is the matching tolerance, in degrees, used when two
// decoded points are compared for display or containment purposes.
const DefaultTolerance = 0.001

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", c.Lat, c.Lng)
}

// NearlyEqual reports whether a and b are within eps degrees of each other
// on both axes. It is not transitive and must not back a map key; use
// Quantize for that.
func NearlyEqual(a, b Coordinate, eps float64) bool {
	return math.Abs(a.Lat-b.Lat) <= eps && math.Abs(a.Lng-b.Lng) <= eps
}

// GridKey identifies the quantization cell a coordinate falls into.
type GridKey struct {
	Lat int64
	Lng int64
}

// Quantize snaps c onto a grid of the given step (degrees).
func Quantize(c Coordinate, step float64) GridKey {
	return GridKey{
		Lat: int64(math.Floor(c.Lat / step)),
		Lng: int64(math.Floor(c.Lng / step)),
	}
}
