package geo

import (
	"errors"
	"fmt"
)

const (
	// DefaultPrecision is the factor used by the standard polyline format.
	DefaultPrecision = 1e5
	// Precision6 is used by routing providers that encode six decimals.
	Precision6 = 1e6
)

var ErrDecode = errors.New("malformed polyline")

// DecodeError reports where in the encoded string decoding stopped.
type DecodeError struct {
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("polyline: %s at offset %d", e.Reason, e.Offset)
}

func (e *DecodeError) Unwrap() error {
	return ErrDecode
}

// DecodePolyline expands an encoded polyline into its coordinates. The
// precision is never inferred from the input; pass DefaultPrecision or
// Precision6 to match the provider.
func DecodePolyline(encoded string, precision float64) ([]Coordinate, error) {
	if precision <= 0 {
		return nil, fmt.Errorf("polyline: precision must be positive, got %v", precision)
	}

	points := make([]Coordinate, 0, len(encoded)/4)
	var lat, lng int64
	index := 0

	for index < len(encoded) {
		dLat, next, err := decodeValue(encoded, index)
		if err != nil {
			return nil, err
		}
		if next >= len(encoded) {
			return nil, &DecodeError{Offset: next, Reason: "missing longitude"}
		}
		dLng, next, err := decodeValue(encoded, next)
		if err != nil {
			return nil, err
		}
		index = next

		lat += dLat
		lng += dLng
		points = append(points, Coordinate{
			Lat: float64(lat) / precision,
			Lng: float64(lng) / precision,
		})
	}

	return points, nil
}

// decodeValue reads one zig-zag encoded varint starting at index and
// returns the delta and the offset just past it.
func decodeValue(encoded string, index int) (int64, int, error) {
	var result int64
	shift := uint(0)

	for {
		if index >= len(encoded) {
			return 0, index, &DecodeError{Offset: index, Reason: "unexpected end of input"}
		}
		c := encoded[index]
		if c < 63 || c > 126 {
			return 0, index, &DecodeError{Offset: index, Reason: fmt.Sprintf("invalid character %q", c)}
		}
		if shift > 60 {
			return 0, index, &DecodeError{Offset: index, Reason: "value overflows 64 bits"}
		}
		b := int64(c) - 63
		index++

		result |= (b & 0x1f) << shift
		shift += 5
		if b&0x20 == 0 {
			break
		}
	}

	if result&1 == 1 {
		return ^(result >> 1), index, nil
	}
	return result >> 1, index, nil
}
