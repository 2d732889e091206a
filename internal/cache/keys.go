// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

// Package cache provides the response-cache layer: a byte-value Store
// contract with in-memory and Redis backends, plus the structured key
// scheme shared by both.
package cache

import (
	"crypto/sha256"
	"fmt"

	"github.com/goccy/go-json"
)

// Cache key domains. Keys follow "{domain}:{songID}:{hash-or-templateID}" so
// every cached response for one song (or template) shares a deletable
// prefix.
const (
	TemplateDomain   = "recommendation:template"
	VariationsDomain = "recommendation:variations"
)

// TemplateKey builds the response-cache key for a template recommendation
// request. The user context is hashed so two requests with structurally
// equal contexts share a key and contexts of any size stay bounded.
func TemplateKey(songID string, userContext interface{}) string {
	return fmt.Sprintf("%s:%s:%s", TemplateDomain, songID, hashContext(userContext))
}

// TemplateKeyPrefix returns the prefix covering every cached template
// recommendation for the song, for invalidation.
func TemplateKeyPrefix(songID string) string {
	return fmt.Sprintf("%s:%s:", TemplateDomain, songID)
}

// VariationsKey builds the response-cache key for a layer-variation request.
func VariationsKey(templateID string, layer string, songID string) string {
	return fmt.Sprintf("%s:%s:%s:%s", VariationsDomain, templateID, layer, songID)
}

// hashContext serializes the context to JSON and hashes it. Marshal failures
// fall back to the formatted value; context hashing is for key shape, not
// integrity.
func hashContext(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash[:16])
}
