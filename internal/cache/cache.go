// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/reelmatch/reelmatch/internal/metrics"
)

// Store is the response-cache contract. Values are opaque byte slices
// (serialized responses), so a hit replays the exact bytes that were stored
// and backends stay interchangeable.
//
// Implementations never surface errors: a failed read is a miss, a failed
// write returns false, and callers proceed either way. The cache is an
// optimization, not a dependency.
type Store interface {
	// Get returns the cached value and true on a live hit.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores the value with the given TTL, reporting success.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool

	// DeleteByPrefix removes every key with the given prefix and returns
	// the number of keys removed.
	DeleteByPrefix(ctx context.Context, prefix string) int
}

// cleanupInterval is how often the in-memory cache sweeps expired entries.
const cleanupInterval = 5 * time.Minute

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is a thread-safe in-process Store with per-entry TTL and periodic
// cleanup. It is the default backend when no Redis address is configured.
type Memory struct {
	mu        sync.RWMutex
	entries   map[string]entry
	cacheType string
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemory creates an in-memory cache store. cacheType labels the store's
// metrics ("response", "score"). A background goroutine sweeps expired
// entries until Close is called.
func NewMemory(cacheType string) *Memory {
	m := &Memory{
		entries:   make(map[string]entry),
		cacheType: cacheType,
		done:      make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// Get retrieves a live value. Expired entries are removed on access and
// count as misses.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	e, exists := m.entries[key]
	m.mu.RUnlock()

	if !exists {
		metrics.RecordCacheMiss(m.cacheType)
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		metrics.RecordCacheMiss(m.cacheType)
		metrics.CacheEvictions.WithLabelValues(m.cacheType).Inc()
		return nil, false
	}

	metrics.RecordCacheHit(m.cacheType)
	return e.value, true
}

// Set stores a value with the given TTL, overwriting any existing entry.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) bool {
	m.mu.Lock()
	m.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	size := len(m.entries)
	m.mu.Unlock()

	metrics.CacheSize.WithLabelValues(m.cacheType).Set(float64(size))
	return true
}

// DeleteByPrefix removes every entry whose key starts with prefix.
func (m *Memory) DeleteByPrefix(_ context.Context, prefix string) int {
	m.mu.Lock()
	deleted := 0
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
			deleted++
		}
	}
	size := len(m.entries)
	m.mu.Unlock()

	metrics.CacheSize.WithLabelValues(m.cacheType).Set(float64(size))
	metrics.CacheInvalidations.WithLabelValues(m.cacheType).Add(float64(deleted))
	return deleted
}

// Len reports the current number of entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close stops the background cleanup goroutine.
func (m *Memory) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	return nil
}

func (m *Memory) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

func (m *Memory) cleanup() {
	now := time.Now()

	m.mu.Lock()
	evicted := 0
	for key, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, key)
			evicted++
		}
	}
	size := len(m.entries)
	m.mu.Unlock()

	metrics.CacheEvictions.WithLabelValues(m.cacheType).Add(float64(evicted))
	metrics.CacheSize.WithLabelValues(m.cacheType).Set(float64(size))
}

// GenerateKey builds a cache key from a domain prefix and identifying
// parameters. Parameters are serialized to JSON and hashed so structurally
// equal requests map to the same key regardless of value size.
func GenerateKey(domain string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		// Fallback to simple string key
		return fmt.Sprintf("%s:%v", domain, params)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", domain, hash[:16])
}
