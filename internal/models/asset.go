// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package models

import (
	"strings"
	"time"
)

// SongMetadata carries the audio attributes used by compatibility scoring.
// Zero values mean "not available" and score as neutral.
type SongMetadata struct {
	// BPM is the song tempo in beats per minute (0 = unknown).
	BPM float64 `json:"bpm,omitempty"`

	// Genre is the primary genre label (empty = unknown).
	Genre string `json:"genre,omitempty"`
}

// Asset is the canonical catalog entity. Songs, layer assets, and composite
// templates all share this shape; composites additionally carry Components.
// Assets are immutable from this service's perspective - the catalog
// collaborator owns them.
type Asset struct {
	// ID is the catalog's internal identifier.
	ID string `json:"id"`

	// Address is the hierarchical asset address (e.g. "C.POP.TSW.001").
	// Scoring and caching key on the address, not the ID.
	Address string `json:"address"`

	// Name is the human-readable asset name.
	Name string `json:"name"`

	// Layer is the catalog layer code the asset is filed under.
	Layer string `json:"layer,omitempty"`

	// Tags drive all rule-based compatibility scoring.
	Tags []string `json:"tags,omitempty"`

	// Description is free-form catalog text.
	Description string `json:"description,omitempty"`

	// CreatedAt feeds the freshness boost. Zero time means no boost.
	CreatedAt time.Time `json:"created_at,omitempty"`

	// Components lists the composite's component references, one per layer,
	// each prefixed with its layer code. Empty for non-composite assets.
	Components []string `json:"components,omitempty"`

	// SongMetadata is populated for song-layer assets only.
	SongMetadata *SongMetadata `json:"song_metadata,omitempty"`
}

// BPM returns the song tempo, or 0 when unknown.
func (a *Asset) BPM() float64 {
	if a.SongMetadata == nil {
		return 0
	}
	return a.SongMetadata.BPM
}

// Genre returns the song genre, or "" when unknown.
func (a *Asset) Genre() string {
	if a.SongMetadata == nil {
		return ""
	}
	return a.SongMetadata.Genre
}

// ComponentForLayer returns the composite's component reference for the given
// layer, matched by layer-code prefix. Returns "" when the layer has no
// component.
func (a *Asset) ComponentForLayer(layer Layer) string {
	return componentWithPrefix(a.Components, layer.Code())
}

// SongComponent returns the composite's song-layer component reference.
func (a *Asset) SongComponent() string {
	return componentWithPrefix(a.Components, SongLayerCode)
}

func componentWithPrefix(components []string, code string) string {
	for _, c := range components {
		if strings.HasPrefix(c, code) {
			return c
		}
	}
	return ""
}

// SubstituteLayer returns a hypothetical composite with the given layer's
// component swapped for the replacement asset and the replacement's tags
// merged in. The receiver is not modified; the result is synthetic and must
// never be persisted under the original template's identity.
func (a *Asset) SubstituteLayer(layer Layer, replacement *Asset) *Asset {
	components := make([]string, len(a.Components))
	copy(components, a.Components)

	code := layer.Code()
	replaced := false
	for i, c := range components {
		if strings.HasPrefix(c, code) {
			components[i] = replacement.Address
			replaced = true
			break
		}
	}
	if !replaced {
		components = append(components, replacement.Address)
	}

	tags := make([]string, 0, len(a.Tags)+len(replacement.Tags))
	tags = append(tags, a.Tags...)
	tags = append(tags, replacement.Tags...)

	hypothetical := *a
	hypothetical.Components = components
	hypothetical.Tags = tags
	return &hypothetical
}

// NormalizedTags returns the asset's tags lower-cased. Scoring compares tags
// case-insensitively throughout.
func (a *Asset) NormalizedTags() []string {
	tags := make([]string, len(a.Tags))
	for i, t := range a.Tags {
		tags[i] = strings.ToLower(t)
	}
	return tags
}
