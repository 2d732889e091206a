// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/reelmatch/reelmatch/internal/models"
)

func testServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, zerolog.Nop())
}

func TestGetByAddress(t *testing.T) {
	asset := &models.Asset{
		ID:      "1",
		Address: "G.POP.001",
		Name:    "Test Song",
		Tags:    []string{"pop", "high-energy"},
		SongMetadata: &models.SongMetadata{
			BPM:   120,
			Genre: "pop",
		},
	}

	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assets/G.POP.001" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(asset)
	})

	got, err := client.GetByAddress(context.Background(), "G.POP.001")
	if err != nil {
		t.Fatalf("GetByAddress: %v", err)
	}
	if got == nil {
		t.Fatal("GetByAddress returned nil for an existing asset")
	}
	if got.Address != asset.Address || got.BPM() != 120 {
		t.Errorf("GetByAddress = %+v, want %+v", got, asset)
	}
}

func TestGetByAddressNotFound(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	got, err := client.GetByAddress(context.Background(), "G.NOPE.001")
	if err != nil {
		t.Fatalf("404 must not be an error, got %v", err)
	}
	if got != nil {
		t.Errorf("GetByAddress = %+v, want nil for missing asset", got)
	}
}

func TestGetCompositesForSong(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assets/G.POP.001/composites" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "50" {
			t.Errorf("limit = %s, want 50", r.URL.Query().Get("limit"))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]*models.Asset{
			{Address: "C.POP.001"},
			{Address: "C.POP.002"},
		})
	})

	got, err := client.GetCompositesForSong(context.Background(), "G.POP.001", 50)
	if err != nil {
		t.Fatalf("GetCompositesForSong: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("returned %d composites, want 2", len(got))
	}
}

func TestGetCompositesForSongEmptyOn404(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	got, err := client.GetCompositesForSong(context.Background(), "G.POP.001", 50)
	if err != nil {
		t.Fatalf("404 must not be an error, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("returned %d composites, want empty set", len(got))
	}
}

func TestGetByLayer(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("layer") != "S" {
			t.Errorf("layer = %s, want S", r.URL.Query().Get("layer"))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]*models.Asset{
			{Address: "S.DIVA.001", Layer: "S"},
		})
	})

	got, err := client.GetByLayer(context.Background(), "S", 100)
	if err != nil {
		t.Fatalf("GetByLayer: %v", err)
	}
	if len(got) != 1 || got[0].Address != "S.DIVA.001" {
		t.Errorf("GetByLayer = %+v", got)
	}
}

func TestServerErrorIsUnavailable(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.GetByAddress(context.Background(), "G.POP.001")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("5xx error = %v, want ErrUnavailable", err)
	}
}

func TestConnectionFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on
	client := NewClient(srv.URL, zerolog.Nop())

	_, err := client.GetByAddress(context.Background(), "G.POP.001")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("network error = %v, want ErrUnavailable", err)
	}
}

func TestCircuitBreakerOpensAfterRepeatedFailures(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	// Drive enough failures through the breaker to trip it.
	for i := 0; i < 15; i++ {
		_, _ = client.GetByAddress(context.Background(), "G.POP.001")
	}

	_, err := client.GetByAddress(context.Background(), "G.POP.001")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("open-circuit error = %v, want ErrUnavailable", err)
	}
}

func TestHealthCheck(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	status, err := client.HealthCheck(context.Background())
	if err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if status.Status != "ok" {
		t.Errorf("Status = %q, want ok", status.Status)
	}
	if status.Latency <= 0 {
		t.Errorf("Latency = %v, want positive", status.Latency)
	}
}
