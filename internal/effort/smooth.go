package effort

import "math"

// Number is any numeric kind a stream can carry.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Smooth applies a 3-tap moving average. The endpoints are copied as is
// and integer kinds use integer division.
func Smooth[T Number](values []T) []T {
	out := make([]T, len(values))
	copy(out, values)
	for i := 1; i < len(values)-1; i++ {
		out[i] = (values[i-1] + values[i] + values[i+1]) / 3
	}
	return out
}

// SmoothAltitude is Smooth for altitude streams that may contain NaN for
// unknown samples. A sample whose window touches an unknown one is kept as
// is, so a gap never spreads to its neighbours.
func SmoothAltitude(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	for i := 1; i < len(values)-1; i++ {
		a, b, c := values[i-1], values[i], values[i+1]
		if math.IsNaN(a) || math.IsNaN(b) || math.IsNaN(c) {
			continue
		}
		out[i] = (a + b + c) / 3
	}
	return out
}
