// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"ERROR", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Info().Str("song", "G.POP.001").Msg("scoring started")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["message"] != "scoring started" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["song"] != "G.POP.001" {
		t.Errorf("song = %v", entry["song"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected a timestamp field")
	}
}

func TestCtxCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	ctx = ContextWithRequestID(ctx, "req-123")

	ctxLogger := Ctx(ctx)
	ctxLogger.Info().Msg("handled")

	if !strings.Contains(buf.String(), `"request_id":"req-123"`) {
		t.Errorf("output missing request id: %q", buf.String())
	}
}

func TestCtxFallsBackToGlobal(t *testing.T) {
	if RequestIDFromContext(context.Background()) != "" {
		t.Error("empty context should have no request id")
	}
	// Must not panic without a context logger.
	fallbackLogger := Ctx(context.Background())
	fallbackLogger.Debug().Msg("fallback")
}

func TestGenerateRequestIDUnique(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	if a == b {
		t.Error("request IDs must be unique")
	}
	if len(a) != 36 {
		t.Errorf("request ID %q is not a UUID", a)
	}
}

func TestSlogHandlerRoutesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewSlogHandlerWithLogger(NewTestLogger(&buf)))

	logger.Info("warmup complete", "songs", int64(50), "ok", true)

	out := buf.String()
	for _, want := range []string{`"message":"warmup complete"`, `"songs":50`, `"ok":true`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %q", want, out)
		}
	}
}

func TestSlogHandlerGroupsPrefixKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewSlogHandlerWithLogger(NewTestLogger(&buf)))

	logger.WithGroup("seeding").Info("done", "errors", int64(2))

	if !strings.Contains(buf.String(), `"seeding.errors":2`) {
		t.Errorf("output missing grouped key: %q", buf.String())
	}
}

func TestSlogHandlerLevelMapping(t *testing.T) {
	var buf bytes.Buffer
	zl := NewTestLogger(&buf).Level(zerolog.WarnLevel)
	handler := NewSlogHandlerWithLogger(zl)

	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info must be disabled on a warn-level logger")
	}
	if !handler.Enabled(context.Background(), slog.LevelError) {
		t.Error("error must stay enabled on a warn-level logger")
	}
}
