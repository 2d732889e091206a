// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

// Package catalog implements the HTTP client for the asset catalog service,
// the collaborator that owns songs, layer assets, and composite templates.
//
// The client wraps every call with a circuit breaker and a client-side rate
// limiter so a degraded catalog cannot be hammered into the ground by
// recommendation traffic. A 404 from the catalog is data ("this asset does
// not exist"), not an error: lookups return nil/empty without failing.
// Network failures, timeouts, and 5xx responses surface as ErrUnavailable.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/reelmatch/reelmatch/internal/metrics"
	"github.com/reelmatch/reelmatch/internal/models"
)

// ErrUnavailable marks catalog failures that are the catalog's fault:
// network errors, timeouts, open circuit, or 5xx responses. Callers
// translate it to their service-unavailable taxonomy.
var ErrUnavailable = errors.New("catalog unavailable")

// Per-operation timeouts. Point lookups are short; bulk layer queries and
// composite resolution carry more data and get longer budgets.
const (
	lookupTimeout    = 5 * time.Second
	layerTimeout     = 10 * time.Second
	compositeTimeout = 15 * time.Second
)

// defaultRateLimit bounds outbound catalog requests per second, with a small
// burst for the parallel fan-out inside one scoring request.
const (
	defaultRateLimit = 50
	defaultRateBurst = 100
)

// HealthStatus is the catalog's health probe result.
type HealthStatus struct {
	Status  string        `json:"status"`
	Latency time.Duration `json:"latency"`
}

// Client is the HTTP catalog client. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cb         *gobreaker.CircuitBreaker[interface{}]
	logger     zerolog.Logger
}

// NewClient creates a catalog client for the service at baseURL.
func NewClient(baseURL string, logger zerolog.Logger) *Client {
	cbName := "catalog"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	componentLogger := logger.With().Str("component", "catalog").Logger()

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			componentLogger.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: compositeTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultRateBurst),
		cb:      cb,
		logger:  componentLogger,
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

// GetByAddress resolves one asset by its catalog address. Returns (nil, nil)
// when the address does not exist.
func (c *Client) GetByAddress(ctx context.Context, address string) (*models.Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	var asset *models.Asset
	err := c.getJSON(ctx, "get_by_address",
		fmt.Sprintf("/assets/%s", address), &asset)
	if err != nil {
		return nil, err
	}
	return asset, nil
}

// GetByLayer lists assets filed under the given layer code, up to limit.
func (c *Client) GetByLayer(ctx context.Context, layerCode string, limit int) ([]*models.Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, layerTimeout)
	defer cancel()

	var assets []*models.Asset
	err := c.getJSON(ctx, "get_by_layer",
		fmt.Sprintf("/assets?layer=%s&limit=%d", layerCode, limit), &assets)
	if err != nil {
		return nil, err
	}
	return assets, nil
}

// GetCompositesForSong lists the composite templates built on the song, up
// to limit. A song with no composites returns an empty slice.
func (c *Client) GetCompositesForSong(ctx context.Context, songAddress string, limit int) ([]*models.Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, compositeTimeout)
	defer cancel()

	var assets []*models.Asset
	err := c.getJSON(ctx, "composites_for_song",
		fmt.Sprintf("/assets/%s/composites?limit=%d", songAddress, limit), &assets)
	if err != nil {
		return nil, err
	}
	return assets, nil
}

// HealthCheck probes the catalog and reports its status with round-trip
// latency.
func (c *Client) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	start := time.Now()
	var probe struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, "health", "/health", &probe); err != nil {
		return nil, err
	}

	status := probe.Status
	if status == "" {
		status = "ok"
	}
	return &HealthStatus{Status: status, Latency: time.Since(start)}, nil
}

// getJSON performs a rate-limited, breaker-guarded GET and decodes the
// response into out. A 404 leaves out untouched and returns nil.
func (c *Client) getJSON(ctx context.Context, operation, path string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	start := time.Now()
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.doGet(ctx, path, out)
	})
	duration := time.Since(start)

	switch {
	case err == nil:
		metrics.RecordCatalogRequest(operation, "ok", duration)
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordCatalogRequest(operation, "rejected", duration)
		c.logger.Warn().Str("operation", operation).Msg("catalog request rejected by circuit breaker")
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		metrics.RecordCatalogRequest(operation, "error", duration)
		return err
	}
}

func (c *Client) doGet(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	case resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: catalog returned status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("catalog returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	return nil
}
