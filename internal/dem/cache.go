package dem

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/briangreenhill/ridgeline/internal/geo"
)

// Cache keeps at most maxTiles parsed tiles resident. Concurrent misses
// on the same tile wait for a single load.
type Cache struct {
	dir     string
	tiles   *lru.Cache[TileName, *Grid]
	loads   singleflight.Group
	missing sync.Map // TileName -> struct{}
	open    func(path string) (*Grid, error)
	logger  *slog.Logger
}

func NewCache(dir string, maxTiles int, logger *slog.Logger) (*Cache, error) {
	if maxTiles < 1 {
		return nil, fmt.Errorf("dem: cache needs room for at least one tile, got %d", maxTiles)
	}

	c := &Cache{dir: dir, open: Open, logger: logger}
	// Evicted grids stay readable for queries already holding them; the
	// samples are freed once the last reader drops its reference.
	tiles, err := lru.NewWithEvict(maxTiles, func(name TileName, _ *Grid) {
		c.logger.Debug("Evicting tile", slog.String("tile", name.String()))
	})
	if err != nil {
		return nil, err
	}
	c.tiles = tiles

	return c, nil
}

// Grid returns the tile named name, loading it from disk on a miss.
func (c *Cache) Grid(name TileName) (*Grid, error) {
	if g, ok := c.tiles.Get(name); ok {
		return g, nil
	}
	if _, ok := c.missing.Load(name); ok {
		return nil, fmt.Errorf("%w: %s", ErrNoTile, name)
	}

	v, err, _ := c.loads.Do(name.String(), func() (interface{}, error) {
		if g, ok := c.tiles.Get(name); ok {
			return g, nil
		}

		path := filepath.Join(c.dir, name.Filename())
		g, err := c.open(path)
		if errors.Is(err, fs.ErrNotExist) {
			c.missing.Store(name, struct{}{})
			c.logger.Warn("Elevation tile not found", slog.String("path", path))
			return nil, fmt.Errorf("%w: %s: %w", ErrNoTile, name, err)
		}
		if err != nil {
			return nil, err
		}

		c.logger.Debug("Loaded tile", slog.String("tile", name.String()), slog.Int("size", g.Size()))
		c.tiles.Add(name, g)
		return g, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Grid), nil
}

// Elevation looks up c in whichever tile contains it.
func (c *Cache) Elevation(p geo.Coordinate) (float64, error) {
	g, err := c.Grid(TileNameFor(p))
	if err != nil {
		return 0, err
	}
	return g.Elevation(p)
}

// Len is the number of resident tiles.
func (c *Cache) Len() int {
	return c.tiles.Len()
}

// Close releases every resident tile. Queries after Close load tiles
// afresh.
func (c *Cache) Close() error {
	for _, name := range c.tiles.Keys() {
		if g, ok := c.tiles.Peek(name); ok {
			g.Close()
		}
	}
	c.tiles.Purge()
	return nil
}
