// Reelmatch - Song-to-Video-Template Compatibility and Recommendation Service
// Copyright 2026 Reelmatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelmatch/reelmatch

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/reelmatch/reelmatch/internal/recommend"
	"github.com/reelmatch/reelmatch/internal/scoring"
)

// maxRequestBody bounds request payloads. Recommendation requests are small;
// anything above this is a client bug or abuse.
const maxRequestBody = 1 << 20

// UserContextPayload is the user_context block shared by both recommendation
// endpoints.
type UserContextPayload struct {
	UserID      string               `json:"user_id"`
	Preferences *scoring.Preferences `json:"preferences,omitempty"`
	DeviceInfo  map[string]string    `json:"device_info,omitempty"`
}

func (p *UserContextPayload) toUserContext() *recommend.UserContext {
	if p == nil {
		return nil
	}
	return &recommend.UserContext{
		UserID:      p.UserID,
		Preferences: p.Preferences,
		DeviceInfo:  p.DeviceInfo,
	}
}

// TemplateRequest is the body for POST /api/v1/recommend/template.
type TemplateRequest struct {
	SongID          string              `json:"song_id" validate:"required"`
	UserContext     *UserContextPayload `json:"user_context,omitempty"`
	MaxAlternatives int                 `json:"max_alternatives,omitempty" validate:"omitempty,min=1,max=20"`
}

// VariationsRequest is the body for POST /api/v1/recommend/variations.
type VariationsRequest struct {
	CurrentTemplateID string              `json:"current_template_id" validate:"required"`
	VaryLayer         string              `json:"vary_layer" validate:"required,oneof=stars looks moves worlds"`
	SongID            string              `json:"song_id" validate:"required"`
	UserContext       *UserContextPayload `json:"user_context,omitempty"`
	Limit             int                 `json:"limit,omitempty" validate:"omitempty,min=1,max=20"`
}

// decodeJSON reads a bounded request body into dst. Unknown fields are
// tolerated so clients can send forward-compatible payloads.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}
