// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package recommend

import "testing"

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative min score", func(c *Config) { c.MinScore = -0.1 }},
		{"min score above one", func(c *Config) { c.MinScore = 1.1 }},
		{"negative diversity factor", func(c *Config) { c.DiversityFactor = -0.01 }},
		{"diversity factor at one", func(c *Config) { c.DiversityFactor = 1 }},
		{"zero response TTL", func(c *Config) { c.ResponseTTL = 0 }},
		{"zero max candidates", func(c *Config) { c.MaxCandidates = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestClampCount(t *testing.T) {
	tests := []struct {
		in, def, want int
	}{
		{0, 5, 5},
		{0, 8, 8},
		{3, 5, 3},
		{-2, 5, 1},
		{1, 5, 1},
		{20, 5, 20},
		{50, 5, 20},
	}
	for _, tt := range tests {
		if got := clampCount(tt.in, tt.def); got != tt.want {
			t.Errorf("clampCount(%d, %d) = %d, want %d", tt.in, tt.def, got, tt.want)
		}
	}
}
