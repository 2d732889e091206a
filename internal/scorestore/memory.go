// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package scorestore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/reelmatch/reelmatch/internal/scoring"
)

// MemoryStore is an in-process scoring.Store. It backs single-node
// deployments that run without a Badger data directory, and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]*scoring.StoredScore
	now  func() time.Time
}

// NewMemoryStore creates an empty in-memory score store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[string]*scoring.StoredScore),
		now:  time.Now,
	}
}

func memKey(songAddr, templateAddr string) string {
	return songAddr + "|" + templateAddr
}

// Get returns the stored score, or nil when absent or stale.
func (s *MemoryStore) Get(_ context.Context, songAddr, templateAddr string) (*scoring.StoredScore, error) {
	s.mu.RLock()
	rec, ok := s.rows[memKey(songAddr, templateAddr)]
	s.mu.RUnlock()

	if !ok || s.now().Sub(rec.ComputedAt) >= Staleness {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

// Put upserts the score row for its pair.
func (s *MemoryStore) Put(_ context.Context, rec *scoring.StoredScore) error {
	copied := *rec
	s.mu.Lock()
	s.rows[memKey(rec.SongAddress, rec.TemplateAddress)] = &copied
	s.mu.Unlock()
	return nil
}

// DeleteBySong removes every stored score for the song.
func (s *MemoryStore) DeleteBySong(_ context.Context, songAddr string) (int, error) {
	prefix := songAddr + "|"

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for key := range s.rows {
		if strings.HasPrefix(key, prefix) {
			delete(s.rows, key)
			deleted++
		}
	}
	return deleted, nil
}

// Len reports the number of stored rows, stale ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Close satisfies the store lifecycle; nothing to release.
func (s *MemoryStore) Close() error {
	return nil
}
