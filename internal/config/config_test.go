// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"missing catalog url", func(c *Config) { c.Catalog.BaseURL = "" }},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"redis without addr", func(c *Config) { c.Cache.Backend = "redis"; c.Cache.RedisAddr = "" }},
		{"unknown score backend", func(c *Config) { c.Scores.Backend = "postgres" }},
		{"badger without path", func(c *Config) { c.Scores.Path = "" }},
		{"history enabled without path", func(c *Config) { c.History.Path = "" }},
		{"min score out of range", func(c *Config) { c.Recommend.MinScore = 1.5 }},
		{"negative diversity factor", func(c *Config) { c.Recommend.DiversityFactor = -1 }},
		{"zero response ttl", func(c *Config) { c.Recommend.ResponseTTL = 0 }},
		{"zero max candidates", func(c *Config) { c.Recommend.MaxCandidates = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateAcceptsDisabledOptionals(t *testing.T) {
	cfg := Default()
	cfg.Cache.Backend = "memory"
	cfg.Scores.Backend = "memory"
	cfg.Scores.Path = ""
	cfg.History.Enabled = false
	cfg.History.Path = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("memory-only config invalid: %v", err)
	}
}

func TestLoadDefaultsOnly(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 3002 {
		t.Errorf("port = %d, want default 3002", cfg.Server.Port)
	}
	if cfg.Recommend.MinScore != 0.6 {
		t.Errorf("min score = %v, want 0.6", cfg.Recommend.MinScore)
	}
}

func TestLoadYAMLFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 8080
catalog:
  base_url: http://catalog.internal/api/v1
recommend:
  min_score: 0.5
  response_ttl: 10m
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Catalog.BaseURL != "http://catalog.internal/api/v1" {
		t.Errorf("catalog url = %s", cfg.Catalog.BaseURL)
	}
	if cfg.Recommend.MinScore != 0.5 {
		t.Errorf("min score = %v, want 0.5", cfg.Recommend.MinScore)
	}
	if cfg.Recommend.ResponseTTL != 10*time.Minute {
		t.Errorf("response TTL = %v, want 10m", cfg.Recommend.ResponseTTL)
	}
	// Untouched sections keep their defaults.
	if cfg.Cache.Backend != "memory" {
		t.Errorf("cache backend = %s, want memory", cfg.Cache.Backend)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want env override 9090", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %s, want debug", cfg.Logging.Level)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != want[0] || cfg.Server.CORSOrigins[1] != want[1] {
		t.Errorf("cors origins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
}

func TestLoadIgnoresUnmappedEnvVars(t *testing.T) {
	t.Setenv("RANDOM_UNRELATED_VAR", "value")

	if _, err := Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestLoadInvalidConfigFails(t *testing.T) {
	t.Setenv("HTTP_PORT", "99999")

	if _, err := Load(); err == nil {
		t.Fatal("expected out-of-range port to fail validation")
	}
}
