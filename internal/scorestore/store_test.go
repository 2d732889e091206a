// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package scorestore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/reelmatch/reelmatch/internal/scoring"
)

func newTestBadgerStore(t *testing.T) *BadgerStore {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open in-memory badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewBadgerStore(db, zerolog.Nop())
}

func record(song, template string, computedAt time.Time) *scoring.StoredScore {
	return &scoring.StoredScore{
		SongAddress:     song,
		TemplateAddress: template,
		Breakdown: scoring.Breakdown{
			Tempo: 1.0, Genre: 0.7, Energy: 0.6, Style: 0.5, Mood: 0.3,
		},
		AlgorithmVer: scoring.CurrentAlgorithmVersion,
		ComputedAt:   computedAt,
	}
}

// stores under test share the same contract; run every case against both
// implementations.
type testStore interface {
	scoring.Store
	DeleteBySong(ctx context.Context, songAddr string) (int, error)
}

func forEachStore(t *testing.T, fn func(t *testing.T, s testStore, setNow func(time.Time))) {
	t.Run("badger", func(t *testing.T) {
		s := newTestBadgerStore(t)
		fn(t, s, func(now time.Time) { s.now = func() time.Time { return now } })
	})
	t.Run("memory", func(t *testing.T) {
		s := NewMemoryStore()
		fn(t, s, func(now time.Time) { s.now = func() time.Time { return now } })
	})
}

func TestGetAfterPut(t *testing.T) {
	forEachStore(t, func(t *testing.T, s testStore, _ func(time.Time)) {
		ctx := context.Background()
		rec := record("G.POP.001", "C.POP.001", time.Now())

		if err := s.Put(ctx, rec); err != nil {
			t.Fatalf("Put: %v", err)
		}

		got, err := s.Get(ctx, "G.POP.001", "C.POP.001")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got == nil {
			t.Fatal("Get returned nil for a fresh row")
		}
		if got.Breakdown != rec.Breakdown {
			t.Errorf("Breakdown = %+v, want %+v", got.Breakdown, rec.Breakdown)
		}
		if got.AlgorithmVer != scoring.CurrentAlgorithmVersion {
			t.Errorf("AlgorithmVer = %q, want %q", got.AlgorithmVer, scoring.CurrentAlgorithmVersion)
		}
	})
}

func TestGetMissingPair(t *testing.T) {
	forEachStore(t, func(t *testing.T, s testStore, _ func(time.Time)) {
		got, err := s.Get(context.Background(), "G.NOPE.001", "C.NOPE.001")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got != nil {
			t.Errorf("Get = %+v, want nil miss", got)
		}
	})
}

func TestPutIsIdempotentUpsert(t *testing.T) {
	forEachStore(t, func(t *testing.T, s testStore, _ func(time.Time)) {
		ctx := context.Background()

		first := record("G.POP.001", "C.POP.001", time.Now().Add(-time.Hour))
		second := record("G.POP.001", "C.POP.001", time.Now())
		second.Breakdown.Tempo = 0.42

		if err := s.Put(ctx, first); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if err := s.Put(ctx, second); err != nil {
			t.Fatalf("Put: %v", err)
		}

		got, err := s.Get(ctx, "G.POP.001", "C.POP.001")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got == nil {
			t.Fatal("Get returned nil after upsert")
		}
		if got.Breakdown.Tempo != 0.42 {
			t.Errorf("Tempo = %v, want the second writer's value", got.Breakdown.Tempo)
		}

		n, err := s.DeleteBySong(ctx, "G.POP.001")
		if err != nil {
			t.Fatalf("DeleteBySong: %v", err)
		}
		if n != 1 {
			t.Errorf("DeleteBySong removed %d rows, want exactly 1 (no duplicates)", n)
		}
	})
}

func TestStaleRowReportsMiss(t *testing.T) {
	forEachStore(t, func(t *testing.T, s testStore, setNow func(time.Time)) {
		ctx := context.Background()
		computed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		if err := s.Put(ctx, record("G.POP.001", "C.POP.001", computed)); err != nil {
			t.Fatalf("Put: %v", err)
		}

		setNow(computed.Add(Staleness - time.Second))
		got, err := s.Get(ctx, "G.POP.001", "C.POP.001")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got == nil {
			t.Error("row within staleness window reported as miss")
		}

		setNow(computed.Add(Staleness + time.Second))
		got, err = s.Get(ctx, "G.POP.001", "C.POP.001")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got != nil {
			t.Error("stale row served as a hit")
		}
	})
}

func TestDeleteBySongScopesToPrefix(t *testing.T) {
	forEachStore(t, func(t *testing.T, s testStore, _ func(time.Time)) {
		ctx := context.Background()
		now := time.Now()

		rows := []*scoring.StoredScore{
			record("G.POP.001", "C.POP.001", now),
			record("G.POP.001", "C.POP.002", now),
			record("G.POP.0011", "C.POP.003", now),
			record("G.ROCK.001", "C.ROCK.001", now),
		}
		for _, rec := range rows {
			if err := s.Put(ctx, rec); err != nil {
				t.Fatalf("Put: %v", err)
			}
		}

		n, err := s.DeleteBySong(ctx, "G.POP.001")
		if err != nil {
			t.Fatalf("DeleteBySong: %v", err)
		}
		if n != 2 {
			t.Errorf("deleted %d rows, want 2", n)
		}

		// The longer song address must survive: the pair separator keeps
		// "G.POP.0011" out of "G.POP.001"'s prefix.
		got, err := s.Get(ctx, "G.POP.0011", "C.POP.003")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got == nil {
			t.Error("DeleteBySong removed a row belonging to a different song")
		}

		got, err = s.Get(ctx, "G.ROCK.001", "C.ROCK.001")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got == nil {
			t.Error("DeleteBySong removed another song's row")
		}
	})
}

func TestConcurrentWritersLastWriterWins(t *testing.T) {
	forEachStore(t, func(t *testing.T, s testStore, _ func(time.Time)) {
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = s.Put(ctx, record("G.POP.001", "C.POP.001", time.Now()))
			}()
		}
		wg.Wait()

		n, err := s.DeleteBySong(ctx, "G.POP.001")
		if err != nil {
			t.Fatalf("DeleteBySong: %v", err)
		}
		if n != 1 {
			t.Errorf("stored %d rows for one pair under concurrent writers, want 1", n)
		}
	})
}
