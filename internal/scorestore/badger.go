// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

// Package scorestore persists computed compatibility scores in BadgerDB.
//
// Rows are keyed "score:{songAddress}|{templateAddress}" so every score for
// one song shares a prefix and song-level invalidation is a prefix scan. Put
// is a plain upsert: Badger transactions give last-writer-wins semantics for
// concurrent writers racing on the same pair, which is all the score store
// needs.
package scorestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/reelmatch/reelmatch/internal/scoring"
)

// scoreKeyPrefix namespaces score rows within the shared Badger instance.
const scoreKeyPrefix = "score:"

// Staleness is how old a stored row may be before Get reports a miss. Stale
// rows are not deleted; the next Put overwrites them.
const Staleness = 24 * time.Hour

// BadgerStore implements scoring.Store on BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	logger zerolog.Logger
	now    func() time.Time
}

// NewBadgerStore wraps an open Badger instance as a score store.
func NewBadgerStore(db *badger.DB, logger zerolog.Logger) *BadgerStore {
	return &BadgerStore{
		db:     db,
		logger: logger.With().Str("component", "scorestore").Logger(),
		now:    time.Now,
	}
}

// Open opens a Badger database at path and wraps it as a score store. The
// caller owns Close.
func Open(path string, logger zerolog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open score store: %w", err)
	}
	return NewBadgerStore(db, logger), nil
}

func scoreKey(songAddr, templateAddr string) []byte {
	return []byte(scoreKeyPrefix + songAddr + "|" + templateAddr)
}

// songPrefix returns the key prefix covering every score row for one song.
func songPrefix(songAddr string) []byte {
	return []byte(scoreKeyPrefix + songAddr + "|")
}

// Get returns the stored score for the pair, or nil when the row is absent
// or older than the staleness window.
func (s *BadgerStore) Get(ctx context.Context, songAddr, templateAddr string) (*scoring.StoredScore, error) {
	var rec scoring.StoredScore
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(scoreKey(songAddr, templateAddr))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get score: %w", err)
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	if s.now().Sub(rec.ComputedAt) >= Staleness {
		return nil, nil
	}
	return &rec, nil
}

// Put upserts the score row for its (song, template) pair.
func (s *BadgerStore) Put(ctx context.Context, rec *scoring.StoredScore) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal score: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(scoreKey(rec.SongAddress, rec.TemplateAddress), data)
	})
}

// DeleteBySong removes every stored score for the song and returns the
// number of rows deleted. Used when a song's candidate set changes.
func (s *BadgerStore) DeleteBySong(ctx context.Context, songAddr string) (int, error) {
	prefix := songPrefix(songAddr)

	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan scores for song %s: %w", songAddr, err)
	}

	deleted := 0
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("delete score: %w", err)
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return deleted, err
	}

	s.logger.Debug().
		Str("song", songAddr).
		Int("deleted", deleted).
		Msg("invalidated stored scores")
	return deleted, nil
}

// Close closes the underlying Badger instance.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
