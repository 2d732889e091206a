// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package seeding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelmatch/reelmatch/internal/analytics"
	"github.com/reelmatch/reelmatch/internal/models"
	"github.com/reelmatch/reelmatch/internal/scoring"
	"github.com/reelmatch/reelmatch/internal/scorestore"
)

type fakeCatalog struct {
	mu         sync.Mutex
	songs      []*models.Asset
	composites map[string][]*models.Asset
	failSongs  map[string]bool
	listErr    error
}

func newFakeCatalog(songCount int) *fakeCatalog {
	f := &fakeCatalog{
		composites: make(map[string][]*models.Asset),
		failSongs:  make(map[string]bool),
	}
	for i := 0; i < songCount; i++ {
		addr := fmt.Sprintf("G.POP.%03d", i)
		song := &models.Asset{
			ID:      addr,
			Address: addr,
			Layer:   models.SongLayerCode,
			SongMetadata: &models.SongMetadata{
				BPM:   120,
				Genre: "pop",
			},
		}
		f.songs = append(f.songs, song)
		f.composites[addr] = []*models.Asset{
			{ID: addr + "-t1", Address: "C." + addr, Tags: []string{"120bpm", "pop"}},
			{ID: addr + "-t2", Address: "C." + addr + ".2", Tags: []string{"pop"}},
		}
	}
	return f
}

func (f *fakeCatalog) GetByLayer(_ context.Context, _ string, limit int) ([]*models.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.songs) > limit {
		return f.songs[:limit], nil
	}
	return f.songs, nil
}

func (f *fakeCatalog) GetCompositesForSong(_ context.Context, songAddress string, _ int) ([]*models.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSongs[songAddress] {
		return nil, errors.New("composites fetch failed")
	}
	return f.composites[songAddress], nil
}

type captureTracker struct {
	mu     sync.Mutex
	events []analytics.Event
}

func (c *captureTracker) Track(event analytics.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func newTestSeeder(cat *fakeCatalog, store scoring.Store, tracker Tracker) *Seeder {
	s := NewSeeder(cat, scoring.NewScorer(store, zerolog.Nop()), tracker, zerolog.Nop())
	s.sleep = func(context.Context, time.Duration) {}
	return s
}

func TestSeedScoresPopulatesStore(t *testing.T) {
	cat := newFakeCatalog(25)
	store := scorestore.NewMemoryStore()
	tracker := &captureTracker{}

	result, err := newTestSeeder(cat, store, tracker).SeedScores(context.Background())
	if err != nil {
		t.Fatalf("SeedScores: %v", err)
	}

	if result.SongsFound != 25 {
		t.Errorf("SongsFound = %d, want 25", result.SongsFound)
	}
	if result.SongsProcessed != 25 {
		t.Errorf("SongsProcessed = %d, want 25", result.SongsProcessed)
	}
	if result.ScoresComputed != 50 {
		t.Errorf("ScoresComputed = %d, want 50", result.ScoresComputed)
	}
	if result.Errors != 0 {
		t.Errorf("Errors = %d, want 0", result.Errors)
	}
	if store.Len() != 50 {
		t.Errorf("stored rows = %d, want 50", store.Len())
	}
	if len(tracker.events) != 1 {
		t.Fatalf("events = %d, want 1", len(tracker.events))
	}
	if tracker.events[0].EventType != analytics.EventScoreSeeding {
		t.Errorf("event type = %s", tracker.events[0].EventType)
	}
}

func TestSeedScoresPerSongFailuresDoNotAbort(t *testing.T) {
	cat := newFakeCatalog(12)
	cat.failSongs["G.POP.003"] = true
	cat.failSongs["G.POP.011"] = true
	store := scorestore.NewMemoryStore()

	result, err := newTestSeeder(cat, store, nil).SeedScores(context.Background())
	if err != nil {
		t.Fatalf("SeedScores: %v", err)
	}

	if result.Errors != 2 {
		t.Errorf("Errors = %d, want 2", result.Errors)
	}
	if result.SongsProcessed != 10 {
		t.Errorf("SongsProcessed = %d, want 10", result.SongsProcessed)
	}
	if store.Len() != 20 {
		t.Errorf("stored rows = %d, want 20", store.Len())
	}
}

func TestSeedScoresListingFailureAborts(t *testing.T) {
	cat := newFakeCatalog(5)
	cat.listErr = errors.New("catalog down")

	_, err := newTestSeeder(cat, scorestore.NewMemoryStore(), nil).SeedScores(context.Background())
	if err == nil {
		t.Fatal("expected the listing failure to abort the run")
	}
}

func TestSeedScoresCancellation(t *testing.T) {
	cat := newFakeCatalog(50)
	store := scorestore.NewMemoryStore()
	seeder := newTestSeeder(cat, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := false
	seeder.sleep = func(context.Context, time.Duration) {
		if !cancelled {
			cancelled = true
			cancel()
		}
	}

	result, err := seeder.SeedScores(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	// Exactly one batch ran before cancellation took effect.
	if result.SongsProcessed != batchSize {
		t.Errorf("SongsProcessed = %d, want %d", result.SongsProcessed, batchSize)
	}
}

func TestWarmupCacheLimitsSongListing(t *testing.T) {
	cat := newFakeCatalog(80)
	store := scorestore.NewMemoryStore()

	result, err := newTestSeeder(cat, store, nil).WarmupCache(context.Background())
	if err != nil {
		t.Fatalf("WarmupCache: %v", err)
	}
	if result.SongsFound != warmupSongLimit {
		t.Errorf("SongsFound = %d, want %d", result.SongsFound, warmupSongLimit)
	}
	if result.SongsProcessed != warmupSongLimit {
		t.Errorf("SongsProcessed = %d, want %d", result.SongsProcessed, warmupSongLimit)
	}
}

func TestSeedScoresSkipsSongsWithoutComposites(t *testing.T) {
	cat := newFakeCatalog(3)
	cat.composites["G.POP.001"] = nil

	result, err := newTestSeeder(cat, scorestore.NewMemoryStore(), nil).SeedScores(context.Background())
	if err != nil {
		t.Fatalf("SeedScores: %v", err)
	}
	if result.SongsProcessed != 2 {
		t.Errorf("SongsProcessed = %d, want 2", result.SongsProcessed)
	}
	if result.Errors != 0 {
		t.Errorf("Errors = %d, want 0", result.Errors)
	}
}
