package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything ridgeline reads from the environment.
type Config struct {
	DBPath        string
	DEMDir        string
	DEMTiles      int
	Workers       int
	ExcludePaused bool
	Imperial      bool
	Addr          string
	LogLevel      slog.Level
}

// Load reads an optional .env file from the working directory, then the
// process environment. Variables already set in the environment win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("error reading .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, which behaves like os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		DBPath: get("RIDGELINE_DB", "ridgeline.db"),
		DEMDir: get("RIDGELINE_DEM_DIR", "dem"),
		Addr:   get("RIDGELINE_ADDR", ":8222"),
	}

	var err error
	if cfg.DEMTiles, err = positiveInt("RIDGELINE_DEM_TILES", get("RIDGELINE_DEM_TILES", "16")); err != nil {
		return Config{}, err
	}
	if cfg.Workers, err = positiveInt("RIDGELINE_WORKERS", get("RIDGELINE_WORKERS", strconv.Itoa(runtime.NumCPU()))); err != nil {
		return Config{}, err
	}
	if cfg.ExcludePaused, err = strconv.ParseBool(get("RIDGELINE_EXCLUDE_PAUSED", "false")); err != nil {
		return Config{}, fmt.Errorf("RIDGELINE_EXCLUDE_PAUSED: %w", err)
	}

	switch units := strings.ToLower(get("RIDGELINE_UNITS", "metric")); units {
	case "metric":
	case "imperial":
		cfg.Imperial = true
	default:
		return Config{}, fmt.Errorf("RIDGELINE_UNITS: unknown units %q", units)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(get("RIDGELINE_LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("RIDGELINE_LOG_LEVEL: %w", err)
	}

	return cfg, nil
}

func positiveInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("%s: must be at least 1, got %d", key, n)
	}
	return n, nil
}
