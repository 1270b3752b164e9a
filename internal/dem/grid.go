package dem

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync/atomic"

	"github.com/briangreenhill/ridgeline/internal/geo"
)

// Sentinel marks a void sample in the raster.
const Sentinel = math.MinInt16

// Grid is one parsed tile. Samples are never written after Parse, so any
// number of goroutines may query a Grid concurrently.
type Grid struct {
	name     TileName
	size     int
	samples  []int16
	released atomic.Bool
}

// Open reads the tile at path. The file handle is closed before Open
// returns; the corner is taken from the file's base name.
func Open(path string) (*Grid, error) {
	name, err := ParseTileName(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading tile %s: %w", name, err)
	}

	return Parse(name, data)
}

// Parse decodes big-endian int16 samples. The byte length must be 2·S²
// for some S >= 2.
func Parse(name TileName, data []byte) (*Grid, error) {
	size, err := sideLength(len(data))
	if err != nil {
		return nil, fmt.Errorf("%w: tile %s has %d bytes", err, name, len(data))
	}

	samples := make([]int16, size*size)
	for i := range samples {
		off := 2 * i
		if off+2 > len(data) {
			return nil, fmt.Errorf("%w: tile %s truncated at sample %d", ErrFormat, name, i)
		}
		samples[i] = int16(binary.BigEndian.Uint16(data[off : off+2]))
	}

	return &Grid{name: name, size: size, samples: samples}, nil
}

func sideLength(n int) (int, error) {
	if n == 0 || n%2 != 0 {
		return 0, ErrFormat
	}
	count := n / 2
	side := int(math.Sqrt(float64(count)))
	for side*side > count {
		side--
	}
	for (side+1)*(side+1) <= count {
		side++
	}
	if side < 2 || side*side != count {
		return 0, ErrFormat
	}
	return side, nil
}

func (g *Grid) Name() TileName { return g.name }

// Size is the number of samples along one side.
func (g *Grid) Size() int { return g.size }

func (g *Grid) south() float64 { return float64(g.name.Lat) }
func (g *Grid) north() float64 { return float64(g.name.Lat + 1) }
func (g *Grid) west() float64  { return float64(g.name.Lng) }
func (g *Grid) east() float64  { return float64(g.name.Lng + 1) }

// Corners returns the southwest, southeast, northeast and northwest corners.
func (g *Grid) Corners() [4]geo.Coordinate {
	return [4]geo.Coordinate{
		{Lat: g.south(), Lng: g.west()},
		{Lat: g.south(), Lng: g.east()},
		{Lat: g.north(), Lng: g.east()},
		{Lat: g.north(), Lng: g.west()},
	}
}

// Contains reports whether c lies in [south,north)×[west,east).
func (g *Grid) Contains(c geo.Coordinate) bool {
	return c.Lat >= g.south() && c.Lat < g.north() &&
		c.Lng >= g.west() && c.Lng < g.east()
}

// Elevation interpolates the elevation at c in meters.
//
// Rows run north to south, so the fractional row grows as latitude falls.
// Void samples are never blended: if any of the four neighbours is void,
// the valid neighbour carrying the largest weight is returned instead.
func (g *Grid) Elevation(c geo.Coordinate) (float64, error) {
	if g.released.Load() {
		return 0, fmt.Errorf("%w: %s", ErrReleased, g.name)
	}
	if !g.Contains(c) {
		return 0, fmt.Errorf("%w: %s not in %s", ErrOutOfBounds, c, g.name)
	}

	last := g.size - 1
	row := (g.north() - c.Lat) * float64(last)
	col := (c.Lng - g.west()) * float64(last)

	r0 := min(int(math.Floor(row)), last)
	c0 := min(int(math.Floor(col)), last)
	r1 := min(r0+1, last)
	c1 := min(c0+1, last)
	fr := row - float64(r0)
	fc := col - float64(c0)

	corners := [4]struct {
		value  int16
		weight float64
	}{
		{g.sample(r0, c0), (1 - fr) * (1 - fc)},
		{g.sample(r0, c1), (1 - fr) * fc},
		{g.sample(r1, c0), fr * (1 - fc)},
		{g.sample(r1, c1), fr * fc},
	}

	var elevation float64
	voids := 0
	for _, s := range corners {
		if s.value == Sentinel {
			voids++
			continue
		}
		elevation += float64(s.value) * s.weight
	}
	if voids == 0 {
		return elevation, nil
	}
	if voids == len(corners) {
		return 0, fmt.Errorf("%w: %s in %s", ErrNoData, c, g.name)
	}

	best := -1
	for i, s := range corners {
		if s.value == Sentinel {
			continue
		}
		if best < 0 || s.weight > corners[best].weight {
			best = i
		}
	}
	return float64(corners[best].value), nil
}

func (g *Grid) sample(row, col int) int16 {
	idx := row*g.size + col
	if row < 0 || col < 0 || row >= g.size || col >= g.size || idx >= len(g.samples) {
		return Sentinel
	}
	return g.samples[idx]
}

// Close releases the tile. It is safe to call more than once; queries
// after Close fail with ErrReleased.
func (g *Grid) Close() error {
	g.released.Store(true)
	return nil
}
