// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

// Package models defines the catalog-facing domain types shared across the
// scoring, recommendation, and API layers.
package models

import "fmt"

// Layer identifies one of the visual asset categories that compose a template
// alongside a song.
type Layer string

const (
	// LayerStars is the performer/avatar layer.
	LayerStars Layer = "stars"
	// LayerLooks is the styling/wardrobe layer.
	LayerLooks Layer = "looks"
	// LayerMoves is the choreography layer.
	LayerMoves Layer = "moves"
	// LayerWorlds is the environment/backdrop layer.
	LayerWorlds Layer = "worlds"
)

// layerCodes maps layers to the single-letter prefix used on component
// references in the catalog (e.g. "S.POP.DIVA.001").
var layerCodes = map[Layer]string{
	LayerStars:  "S",
	LayerLooks:  "L",
	LayerMoves:  "M",
	LayerWorlds: "W",
}

// SongLayerCode is the component prefix for the song layer of a composite.
const SongLayerCode = "G"

// CompositeLayerCode is the catalog layer under which templates are filed.
const CompositeLayerCode = "C"

// Code returns the component-reference prefix for the layer.
func (l Layer) Code() string {
	return layerCodes[l]
}

// Valid reports whether the layer is one of the four known categories.
func (l Layer) Valid() bool {
	_, ok := layerCodes[l]
	return ok
}

// String returns the layer name.
func (l Layer) String() string {
	return string(l)
}

// ParseLayer converts a string to a Layer, returning an error for unknown values.
func ParseLayer(s string) (Layer, error) {
	l := Layer(s)
	if !l.Valid() {
		return "", fmt.Errorf("unknown layer %q", s)
	}
	return l, nil
}

// Layers lists all variation layers in canonical order.
func Layers() []Layer {
	return []Layer{LayerStars, LayerLooks, LayerMoves, LayerWorlds}
}
