// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// chiRoutePattern extracts the matched chi route pattern from the request
// context, e.g. "/api/v1/recommend/cache/{songID}". Returns "" when the
// request was not routed by chi.
func chiRoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}
