package config

import (
	"log/slog"
	"testing"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(nil))
	if err != nil {
		t.Fatalf("FromLookup failed: %v", err)
	}

	if cfg.DBPath != "ridgeline.db" {
		t.Errorf("Expected default db path, got %q", cfg.DBPath)
	}
	if cfg.DEMTiles != 16 {
		t.Errorf("Expected 16 tiles, got %d", cfg.DEMTiles)
	}
	if cfg.Workers < 1 {
		t.Errorf("Expected at least one worker, got %d", cfg.Workers)
	}
	if cfg.ExcludePaused || cfg.Imperial {
		t.Errorf("Expected elapsed time and metric units by default")
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("Expected info level, got %v", cfg.LogLevel)
	}
}

func TestOverrides(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"RIDGELINE_DEM_DIR":        "/srv/srtm",
		"RIDGELINE_DEM_TILES":      "4",
		"RIDGELINE_WORKERS":        "2",
		"RIDGELINE_EXCLUDE_PAUSED": "true",
		"RIDGELINE_UNITS":          "Imperial",
		"RIDGELINE_LOG_LEVEL":      "debug",
	}))
	if err != nil {
		t.Fatalf("FromLookup failed: %v", err)
	}

	if cfg.DEMDir != "/srv/srtm" || cfg.DEMTiles != 4 || cfg.Workers != 2 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if !cfg.ExcludePaused || !cfg.Imperial {
		t.Errorf("Expected paused exclusion and imperial units, got %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("Expected debug level, got %v", cfg.LogLevel)
	}
}

func TestInvalidValues(t *testing.T) {
	cases := map[string]string{
		"RIDGELINE_DEM_TILES":      "zero",
		"RIDGELINE_WORKERS":        "0",
		"RIDGELINE_EXCLUDE_PAUSED": "sometimes",
		"RIDGELINE_UNITS":          "furlongs",
		"RIDGELINE_LOG_LEVEL":      "loud",
	}

	for key, value := range cases {
		if _, err := FromLookup(lookupFrom(map[string]string{key: value})); err == nil {
			t.Errorf("Expected error for %s=%q", key, value)
		}
	}
}
