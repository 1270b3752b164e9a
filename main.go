package main

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/briangreenhill/ridgeline/internal/activity"
	"github.com/briangreenhill/ridgeline/internal/config"
	"github.com/briangreenhill/ridgeline/internal/dem"
	"github.com/briangreenhill/ridgeline/internal/effort"
)

func main() {
	w := os.Stdout

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("Error loading config", slog.Any("error", err))
		os.Exit(1)
	}

	// logs go to stderr so command output on stdout stays clean
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		logger.Error("Error opening database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	activityService := activity.NewService(db, logger)
	if err := activityService.Migrate(context.Background()); err != nil {
		logger.Error("Error migrating database", slog.String("file", cfg.DBPath), slog.Any("error", err))
		os.Exit(1)
	}

	tiles, err := dem.NewCache(cfg.DEMDir, cfg.DEMTiles, logger)
	if err != nil {
		logger.Error("Error creating tile cache", slog.Any("error", err))
		os.Exit(1)
	}
	defer tiles.Close()

	if err := run(w, os.Args[1:], cfg, logger, activityService, tiles); err != nil {
		logger.Error("Error running ridgeline", slog.Any("error", err))
		return
	}
}

func run(w io.Writer, args []string, cfg config.Config, logger *slog.Logger, activityService *activity.Service, tiles *dem.Cache) error {
	opts := effort.DefaultOptions()
	opts.ExcludePaused = cfg.ExcludePaused

	analyzer := activity.NewAnalyzer(effort.NewScanner(opts), tiles, cfg.Workers, logger)
	cli := activity.NewCLI(w, logger, activityService, analyzer, effort.Format{Imperial: cfg.Imperial}, cfg.Addr, args)

	if err := cli.Run(args); err != nil {
		return err
	}

	return nil
}
