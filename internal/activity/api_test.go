package activity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/briangreenhill/ridgeline/internal/effort"
)

func TestAPI(t *testing.T) {
	svc := newTestService(t)
	if err := svc.Add(context.Background(), sampleAnalysis(42, "Run", time.Date(2024, 5, 1, 18, 30, 0, 0, time.UTC))); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	server := httptest.NewServer(NewAPI(discardLogger(), svc))
	defer server.Close()

	tests := []struct {
		path   string
		status int
	}{
		{"/activities", http.StatusOK},
		{"/activities/42", http.StatusOK},
		{"/activities/42/efforts", http.StatusOK},
		{"/activities/42/splits", http.StatusOK},
		{"/activities/7", http.StatusNotFound},
		{"/activities/seven/efforts", http.StatusBadRequest},
		{"/stats?by=month", http.StatusOK},
		{"/stats?by=decade", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(server.URL + tt.path)
			if err != nil {
				t.Fatalf("GET failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, resp.StatusCode)
			}
		})
	}
}

func TestAPIEfforts(t *testing.T) {
	svc := newTestService(t)
	if err := svc.Add(context.Background(), sampleAnalysis(42, "Run", time.Date(2024, 5, 1, 18, 30, 0, 0, time.UTC))); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	server := httptest.NewServer(NewAPI(discardLogger(), svc))
	defer server.Close()

	resp, err := http.Get(server.URL + "/activities/42/efforts")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	var efforts []effort.ActivityEffort
	if err := json.NewDecoder(resp.Body).Decode(&efforts); err != nil {
		t.Fatalf("Error decoding efforts: %v", err)
	}
	if len(efforts) != 3 || efforts[2].Kind != effort.KindClimb || efforts[0].Target != 1000 {
		t.Errorf("unexpected efforts %+v", efforts)
	}

	resp, err = http.Get(server.URL + "/stats?by=month")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	var stats map[string]effort.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("Error decoding stats: %v", err)
	}
	if stats["2024-05"].Count != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}
