// Package dem reads 1°×1° digital elevation model tiles and answers
// point elevation queries against them.
package dem

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/briangreenhill/ridgeline/internal/geo"
)

var (
	ErrFormat      = errors.New("dem: invalid tile format")
	ErrTileName    = errors.New("dem: invalid tile name")
	ErrOutOfBounds = errors.New("dem: point outside tile")
	ErrNoData      = errors.New("dem: no data at point")
	ErrReleased    = errors.New("dem: tile released")
	ErrNoTile      = errors.New("dem: tile not available")
)

var tileNamePattern = regexp.MustCompile(`^([NS])(\d{2})([EW])(\d{3})$`)

// TileName identifies a tile by its southwest corner in whole degrees.
type TileName struct {
	Lat int
	Lng int
}

// ParseTileName parses names such as "N48W002" or "s12e130.hgt".
func ParseTileName(name string) (TileName, error) {
	base := filepath.Base(name)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}

	m := tileNamePattern.FindStringSubmatch(strings.ToUpper(base))
	if m == nil {
		return TileName{}, fmt.Errorf("%w: %q", ErrTileName, name)
	}

	lat, err := strconv.Atoi(m[2])
	if err != nil {
		return TileName{}, fmt.Errorf("%w: %q", ErrTileName, name)
	}
	lng, err := strconv.Atoi(m[4])
	if err != nil {
		return TileName{}, fmt.Errorf("%w: %q", ErrTileName, name)
	}
	if m[1] == "S" {
		lat = -lat
	}
	if m[3] == "W" {
		lng = -lng
	}
	if lat < -90 || lat >= 90 || lng < -180 || lng >= 180 {
		return TileName{}, fmt.Errorf("%w: %q out of range", ErrTileName, name)
	}

	return TileName{Lat: lat, Lng: lng}, nil
}

// TileNameFor returns the tile whose half-open box contains c.
func TileNameFor(c geo.Coordinate) TileName {
	return TileName{
		Lat: int(math.Floor(c.Lat)),
		Lng: int(math.Floor(c.Lng)),
	}
}

func (t TileName) String() string {
	ns, ew := 'N', 'E'
	lat, lng := t.Lat, t.Lng
	if lat < 0 {
		ns, lat = 'S', -lat
	}
	if lng < 0 {
		ew, lng = 'W', -lng
	}
	return fmt.Sprintf("%c%02d%c%03d", ns, lat, ew, lng)
}

// Filename is the on-disk name of the tile.
func (t TileName) Filename() string {
	return t.String() + ".hgt"
}
