// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package recommend

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelmatch/reelmatch/internal/catalog"
	"github.com/reelmatch/reelmatch/internal/history"
)

func newTestHistory(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(":memory:")
	if err != nil {
		t.Fatalf("open history store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNoopFallback(t *testing.T) {
	template, err := NoopFallback{}.FallbackTemplate(context.Background(), testSong())
	if err != nil {
		t.Fatalf("FallbackTemplate: %v", err)
	}
	if template != nil {
		t.Errorf("template = %+v, want nil", template)
	}
}

func TestHistoryFallbackNoHistory(t *testing.T) {
	fb := NewHistoryFallback(newTestHistory(t), newFakeCatalog(), zerolog.Nop())

	template, err := fb.FallbackTemplate(context.Background(), testSong())
	if err != nil {
		t.Fatalf("FallbackTemplate: %v", err)
	}
	if template != nil {
		t.Errorf("template = %+v, want nil without history", template)
	}
}

func TestHistoryFallbackReturnsMostRecommended(t *testing.T) {
	hist := newTestHistory(t)
	cat := newFakeCatalog()
	popular := cat.add(popTemplate("C.POP.007", "pop"))
	song := testSong()

	for i, templateID := range []string{"C.POP.007", "C.POP.008", "C.POP.007"} {
		rec := &history.Record{
			SongID:     song.ID,
			TemplateID: templateID,
			Score:      0.8,
			CreatedAt:  time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := hist.Insert(context.Background(), rec); err != nil {
			t.Fatalf("insert history: %v", err)
		}
	}

	fb := NewHistoryFallback(hist, cat, zerolog.Nop())
	template, err := fb.FallbackTemplate(context.Background(), song)
	if err != nil {
		t.Fatalf("FallbackTemplate: %v", err)
	}
	if template == nil {
		t.Fatal("expected a fallback template")
	}
	if template.Address != popular.Address {
		t.Errorf("fallback = %s, want %s", template.Address, popular.Address)
	}
}

func TestHistoryFallbackSwallowsCatalogFailure(t *testing.T) {
	hist := newTestHistory(t)
	song := testSong()
	rec := &history.Record{SongID: song.ID, TemplateID: "C.POP.007", Score: 0.8, CreatedAt: time.Now()}
	if err := hist.Insert(context.Background(), rec); err != nil {
		t.Fatalf("insert history: %v", err)
	}

	cat := newFakeCatalog()
	cat.err = catalog.ErrUnavailable

	fb := NewHistoryFallback(hist, cat, zerolog.Nop())
	template, err := fb.FallbackTemplate(context.Background(), song)
	if err != nil {
		t.Fatalf("fallback must not propagate catalog failures, got %v", err)
	}
	if template != nil {
		t.Errorf("template = %+v, want nil on catalog failure", template)
	}
}
