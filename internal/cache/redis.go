// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package cache

import (
	"context"
	"errors"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/rs/zerolog"

	"github.com/reelmatch/reelmatch/internal/metrics"
)

// scanBatchSize bounds how many keys each SCAN iteration returns during
// prefix deletion.
const scanBatchSize = 100

// Redis is a Store backed by a shared Redis instance, for deployments where
// multiple service replicas must see the same response cache.
type Redis struct {
	pool      *redis.Pool
	cacheType string
	logger    zerolog.Logger
}

// NewRedis creates a Redis-backed cache store connecting to addr
// (host:port).
func NewRedis(addr, password string, cacheType string, logger zerolog.Logger) *Redis {
	pool := &redis.Pool{
		MaxIdle:     10,
		MaxActive:   64,
		IdleTimeout: 240 * time.Second,
		Wait:        true,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			opts := []redis.DialOption{
				redis.DialConnectTimeout(5 * time.Second),
				redis.DialReadTimeout(3 * time.Second),
				redis.DialWriteTimeout(3 * time.Second),
			}
			if password != "" {
				opts = append(opts, redis.DialPassword(password))
			}
			return redis.DialContext(ctx, "tcp", addr, opts...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}

	return &Redis{
		pool:      pool,
		cacheType: cacheType,
		logger:    logger.With().Str("component", "cache").Str("backend", "redis").Logger(),
	}
}

// Get retrieves a value. Connection or command failures are logged and
// reported as misses.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("redis connection failed, treating as miss")
		metrics.RecordCacheMiss(r.cacheType)
		return nil, false
	}
	defer conn.Close()

	value, err := redis.Bytes(conn.Do("GET", key))
	if err != nil {
		if !errors.Is(err, redis.ErrNil) {
			r.logger.Warn().Err(err).Str("key", key).Msg("redis GET failed")
		}
		metrics.RecordCacheMiss(r.cacheType)
		return nil, false
	}

	metrics.RecordCacheHit(r.cacheType)
	return value, true
}

// Set stores a value with the given TTL via SETEX.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("redis connection failed, skipping cache write")
		return false
	}
	defer conn.Close()

	seconds := int(ttl.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	if _, err := conn.Do("SETEX", key, seconds, value); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("redis SETEX failed")
		return false
	}
	return true
}

// DeleteByPrefix removes every key with the given prefix using an
// incremental SCAN so large keyspaces are never blocked by a KEYS call.
func (r *Redis) DeleteByPrefix(ctx context.Context, prefix string) int {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("redis connection failed, skipping invalidation")
		return 0
	}
	defer conn.Close()

	deleted := 0
	cursor := 0
	pattern := prefix + "*"
	for {
		values, err := redis.Values(conn.Do("SCAN", cursor, "MATCH", pattern, "COUNT", scanBatchSize))
		if err != nil {
			r.logger.Warn().Err(err).Str("prefix", prefix).Msg("redis SCAN failed")
			break
		}

		var keys []string
		if _, err := redis.Scan(values, &cursor, &keys); err != nil {
			r.logger.Warn().Err(err).Msg("redis SCAN reply parse failed")
			break
		}

		if len(keys) > 0 {
			args := make([]interface{}, len(keys))
			for i, k := range keys {
				args[i] = k
			}
			n, err := redis.Int(conn.Do("DEL", args...))
			if err != nil {
				r.logger.Warn().Err(err).Msg("redis DEL failed")
				break
			}
			deleted += n
		}

		if cursor == 0 {
			break
		}
	}

	metrics.CacheInvalidations.WithLabelValues(r.cacheType).Add(float64(deleted))
	return deleted
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.pool.Close()
}
