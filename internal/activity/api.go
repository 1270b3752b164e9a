package activity

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/briangreenhill/ridgeline/internal/effort"
)

func NewAPI(logger *slog.Logger, activityService *Service) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /activities", handleGetActivities(logger, activityService))
	mux.Handle("GET /activities/{id}", handleGetActivity(logger, activityService))
	mux.Handle("GET /activities/{id}/efforts", handleGetEfforts(logger, activityService))
	mux.Handle("GET /activities/{id}/splits", handleGetSplits(logger, activityService))
	mux.Handle("GET /stats", handleGetStats(logger, activityService))

	return mux
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding response", slog.Any("error", err))
	}
}

// loadActivity resolves the {id} path value, writing the error response
// itself when it fails.
func loadActivity(w http.ResponseWriter, r *http.Request, logger *slog.Logger, activityService *Service) (Analysis, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		logger.Error("Error converting id to int", slog.Any("error", err))
		w.WriteHeader(http.StatusBadRequest)
		return Analysis{}, false
	}

	a, err := activityService.Activity(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		w.WriteHeader(http.StatusNotFound)
		return Analysis{}, false
	}
	if err != nil {
		logger.Error("Error getting activity", slog.Int64("id", id), slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
		return Analysis{}, false
	}

	return a, true
}

func handleGetActivities(logger *slog.Logger, activityService *Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		analyses, err := activityService.Activities(r.Context())
		if err != nil {
			logger.Error("Error getting activities", slog.Any("error", err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		activities := make([]Activity, len(analyses))
		for i, a := range analyses {
			activities[i] = a.Activity
		}
		writeJSON(w, logger, activities)
	})
}

func handleGetActivity(logger *slog.Logger, activityService *Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a, ok := loadActivity(w, r, logger, activityService); ok {
			writeJSON(w, logger, a)
		}
	})
}

func handleGetEfforts(logger *slog.Logger, activityService *Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a, ok := loadActivity(w, r, logger, activityService); ok {
			writeJSON(w, logger, a.Efforts)
		}
	})
}

func handleGetSplits(logger *slog.Logger, activityService *Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a, ok := loadActivity(w, r, logger, activityService); ok {
			writeJSON(w, logger, a.Splits)
		}
	})
}

func handleGetStats(logger *slog.Logger, activityService *Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		by := r.URL.Query().Get("by")
		if _, err := effort.Grouping(by); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		stats, err := activityService.Stats(r.Context(), by)
		if err != nil {
			logger.Error("Error getting stats", slog.Any("error", err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, stats)
	})
}
