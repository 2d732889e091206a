// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

// Package config loads and validates the service configuration from layered
// sources: built-in defaults, an optional YAML file, and environment
// variables, with later layers overriding earlier ones.
package config

import (
	"fmt"
	"time"
)

// Config is the root service configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Cache     CacheConfig     `koanf:"cache"`
	Scores    ScoresConfig    `koanf:"scores"`
	History   HistoryConfig   `koanf:"history"`
	Recommend RecommendConfig `koanf:"recommend"`
	Seeding   SeedingConfig   `koanf:"seeding"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_requests"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// CatalogConfig configures the asset-catalog client.
type CatalogConfig struct {
	BaseURL string `koanf:"base_url"`
}

// CacheConfig configures the response cache. Backend "memory" needs no
// further settings; backend "redis" uses the address and password.
type CacheConfig struct {
	Backend       string `koanf:"backend"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
}

// ScoresConfig configures the persistent score store. Backend "badger"
// stores rows under Path; backend "memory" keeps them in-process.
type ScoresConfig struct {
	Backend string `koanf:"backend"`
	Path    string `koanf:"path"`
}

// HistoryConfig configures the recommendation-history store.
type HistoryConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// RecommendConfig configures the recommendation engine.
type RecommendConfig struct {
	MinScore        float64       `koanf:"min_score"`
	DiversityFactor float64       `koanf:"diversity_factor"`
	ResponseTTL     time.Duration `koanf:"response_ttl"`
	MaxCandidates   int           `koanf:"max_candidates"`
}

// SeedingConfig configures score seeding and startup warmup.
type SeedingConfig struct {
	WarmupOnStartup bool `koanf:"warmup_on_startup"`
}

// LoggingConfig configures the zerolog setup.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Default returns the built-in defaults, the lowest-precedence layer.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3002,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Catalog: CatalogConfig{
			BaseURL: "http://localhost:3000/api/v1",
		},
		Cache: CacheConfig{
			Backend: "memory",
		},
		Scores: ScoresConfig{
			Backend: "badger",
			Path:    "/data/scores",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "/data/history.db",
		},
		Recommend: RecommendConfig{
			MinScore:        0.6,
			DiversityFactor: 0.01,
			ResponseTTL:     5 * time.Minute,
			MaxCandidates:   100,
		},
		Seeding: SeedingConfig{
			WarmupOnStartup: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks cross-field invariants after all layers are applied.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog base URL is required")
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("redis cache backend requires an address")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	switch c.Scores.Backend {
	case "memory":
	case "badger":
		if c.Scores.Path == "" {
			return fmt.Errorf("badger score backend requires a path")
		}
	default:
		return fmt.Errorf("unknown score backend %q", c.Scores.Backend)
	}
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history store requires a path when enabled")
	}
	if c.Recommend.MinScore < 0 || c.Recommend.MinScore > 1 {
		return fmt.Errorf("recommend min score %v out of range", c.Recommend.MinScore)
	}
	if c.Recommend.DiversityFactor < 0 || c.Recommend.DiversityFactor >= 1 {
		return fmt.Errorf("recommend diversity factor %v out of range", c.Recommend.DiversityFactor)
	}
	if c.Recommend.ResponseTTL <= 0 {
		return fmt.Errorf("recommend response TTL must be positive")
	}
	if c.Recommend.MaxCandidates <= 0 {
		return fmt.Errorf("recommend max candidates must be positive")
	}
	return nil
}
