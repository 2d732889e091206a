// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDGeneratesWhenMissing(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r)
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if captured == "" {
		t.Fatal("expected a generated request ID in context")
	}
	if got := rec.Header().Get(RequestIDHeader); got != captured {
		t.Fatalf("response header %q does not match context ID %q", got, captured)
	}
}

func TestRequestIDReusesIncomingHeader(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set(RequestIDHeader, "req-upstream-42")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if captured != "req-upstream-42" {
		t.Fatalf("expected upstream ID to be reused, got %q", captured)
	}
	if got := rec.Header().Get(RequestIDHeader); got != "req-upstream-42" {
		t.Fatalf("unexpected response header %q", got)
	}
}

func TestRequestIDsAreUniquePerRequest(t *testing.T) {
	seen := make(map[string]bool)
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[GetRequestID(r)] = true
	}))

	for i := 0; i < 10; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}

	if len(seen) != 10 {
		t.Fatalf("expected 10 unique IDs, got %d", len(seen))
	}
}

func TestGetRequestIDWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetRequestID(req); got != "" {
		t.Fatalf("expected empty ID without middleware, got %q", got)
	}
}

func TestPrometheusMetricsCapturesStatus(t *testing.T) {
	handler := PrometheusMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status to pass through, got %d", rec.Code)
	}
}

func TestPrometheusMetricsDefaultsToOK(t *testing.T) {
	handler := PrometheusMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			t.Fatal(err)
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected implicit 200, got %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("body not passed through: %q", rec.Body.String())
	}
}

func TestRoutePatternFallsBackToPath(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommend/template", nil)
	if got := routePattern(req); got != "/api/v1/recommend/template" {
		t.Fatalf("unexpected pattern %q", got)
	}
}
