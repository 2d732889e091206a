// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/reelmatch/reelmatch/internal/logging"
	"github.com/reelmatch/reelmatch/internal/middleware"
	"github.com/reelmatch/reelmatch/internal/validation"
)

// APIResponse is the envelope every endpoint returns.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data,omitempty"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries the per-response bookkeeping fields.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	Version   string    `json:"version,omitempty"`
}

// APIError is the error payload inside APIResponse.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// PerformanceMetrics is attached to recommendation payloads so clients can
// see where time went without scraping Prometheus.
type PerformanceMetrics struct {
	ResponseTimeMs      int64 `json:"response_time_ms"`
	CacheHit            bool  `json:"cache_hit"`
	ScoringTimeMs       int64 `json:"score_computation_time_ms,omitempty"`
	TemplatesEvaluated  int   `json:"templates_evaluated,omitempty"`
	VariationsEvaluated int   `json:"variations_evaluated,omitempty"`
}

// sanitizeLogValue replaces control characters so request-derived strings
// cannot forge or corrupt log entries.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON writes the envelope with standard headers. The metadata block
// is filled in here so handlers only build the data payload.
func (s *Server) respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}, apiErr *APIError) {
	response := &APIResponse{
		Status: "success",
		Data:   data,
		Metadata: Metadata{
			Timestamp: time.Now().UTC(),
			RequestID: middleware.GetRequestID(r),
			Version:   s.version,
		},
		Error: apiErr,
	}
	if apiErr != nil {
		response.Status = "error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	body, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("ETag", generateETag(body))

	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// generateETag hashes the body with FNV-1a.
func generateETag(data []byte) string {
	hash := uint32(2166136261)
	for _, b := range data {
		hash ^= uint32(b)
		hash *= 16777619
	}
	return strconv.FormatUint(uint64(hash), 16)
}

// respondError writes an error envelope and logs the underlying cause.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		logging.Error().
			Str("code", sanitizeLogValue(code)).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("API error")
	}

	s.respondJSON(w, r, status, nil, &APIError{
		Code:    code,
		Message: message,
	})
}

// validateRequest validates a request struct and converts failures to the
// VALIDATION_ERROR payload.
func validateRequest(v interface{}) *APIError {
	validationErr := validation.ValidateStruct(v)
	if validationErr == nil {
		return nil
	}

	apiErr := validationErr.ToAPIError()
	return &APIError{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}
}
