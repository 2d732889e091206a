// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

// Package middleware provides HTTP middleware for request identification and
// Prometheus instrumentation.
package middleware

import (
	"net/http"

	"github.com/reelmatch/reelmatch/internal/logging"
)

// RequestIDHeader is the header used to propagate request IDs.
const RequestIDHeader = "X-Request-ID"

// RequestID attaches a request ID to the request context and echoes it in the
// response headers. An incoming X-Request-ID is reused so callers can
// correlate across services; otherwise a fresh ID is generated.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = logging.GenerateRequestID()
		}

		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		w.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID from the request context, or "" if the
// RequestID middleware did not run.
func GetRequestID(r *http.Request) string {
	return logging.RequestIDFromContext(r.Context())
}
