// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

// Package history persists served recommendations in SQLite for offline
// analytics and the most-popular-template fallback. Writes are best-effort:
// a failed insert is logged by the caller and never fails a request.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS recommendation_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    song_id TEXT NOT NULL,
    user_id TEXT,
    template_id TEXT NOT NULL,
    score REAL NOT NULL,
    alternatives_json TEXT,
    context_json TEXT,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_song ON recommendation_history(song_id);
CREATE INDEX IF NOT EXISTS idx_history_created ON recommendation_history(created_at);
`

// Record is one served recommendation.
type Record struct {
	ID           int64
	SongID       string
	UserID       string
	TemplateID   string
	Score        float64
	Alternatives []string
	Context      map[string]interface{}
	CreatedAt    time.Time
}

// Store persists recommendation history in SQLite.
type Store struct {
	db *sql.DB
}

// Open initializes or connects to the history database at path. Use ":memory:"
// for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Insert appends one history record.
func (s *Store) Insert(ctx context.Context, rec *Record) error {
	alternatives, err := json.Marshal(rec.Alternatives)
	if err != nil {
		return fmt.Errorf("marshal alternatives: %w", err)
	}
	var contextJSON []byte
	if rec.Context != nil {
		if contextJSON, err = json.Marshal(rec.Context); err != nil {
			return fmt.Errorf("marshal context: %w", err)
		}
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO recommendation_history (
            song_id, user_id, template_id, score,
            alternatives_json, context_json, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.SongID,
		nullableString(rec.UserID),
		rec.TemplateID,
		rec.Score,
		string(alternatives),
		nullableString(string(contextJSON)),
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}
	return nil
}

// MostRecommendedTemplate returns the template most often served for the
// song, or "" when the song has no history. This backs the fallback path
// when no candidate clears the recommendation threshold.
func (s *Store) MostRecommendedTemplate(ctx context.Context, songID string) (string, error) {
	var templateID string
	err := s.db.QueryRowContext(ctx,
		`SELECT template_id FROM recommendation_history
         WHERE song_id = ?
         GROUP BY template_id
         ORDER BY COUNT(*) DESC, MAX(created_at) DESC
         LIMIT 1`,
		songID,
	).Scan(&templateID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query most recommended template: %w", err)
	}
	return templateID, nil
}

// RecentForSong returns the newest history records for the song, newest
// first, up to limit.
func (s *Store) RecentForSong(ctx context.Context, songID string, limit int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, song_id, user_id, template_id, score,
                alternatives_json, context_json, created_at
         FROM recommendation_history
         WHERE song_id = ?
         ORDER BY created_at DESC, id DESC
         LIMIT ?`,
		songID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history for song: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(rows *sql.Rows) (*Record, error) {
	var (
		rec          Record
		userID       sql.NullString
		alternatives string
		contextJSON  sql.NullString
		createdAt    string
	)
	if err := rows.Scan(&rec.ID, &rec.SongID, &userID, &rec.TemplateID,
		&rec.Score, &alternatives, &contextJSON, &createdAt); err != nil {
		return nil, fmt.Errorf("scan history record: %w", err)
	}

	rec.UserID = userID.String
	if alternatives != "" {
		if err := json.Unmarshal([]byte(alternatives), &rec.Alternatives); err != nil {
			return nil, fmt.Errorf("unmarshal alternatives: %w", err)
		}
	}
	if contextJSON.Valid && contextJSON.String != "" {
		if err := json.Unmarshal([]byte(contextJSON.String), &rec.Context); err != nil {
			return nil, fmt.Errorf("unmarshal context: %w", err)
		}
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	rec.CreatedAt = ts
	return &rec, nil
}

func nullableString(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
