// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package recommend

import "errors"

var (
	// ErrNotFound reports that a requested catalog entity (song or template)
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUpstreamUnavailable reports that the catalog could not be reached
	// and no cached response was available to serve instead.
	ErrUpstreamUnavailable = errors.New("catalog upstream unavailable")
)
