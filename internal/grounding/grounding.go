// Package grounding pulls citation pairs out of a raw generateContent
// response. Extraction never fails; anything unexpected yields no sources.
package grounding

import (
	"encoding/json"

	"macrodash/internal/model"
)

const (
	DefaultTitle = "Search Result"
	DefaultURI   = "#"
)

// Extract reads candidates[0].groundingMetadata.groundingChunks from raw.
func Extract(raw []byte) []model.GroundingSource {
	sources := []model.GroundingSource{}
	if len(raw) == 0 {
		return sources
	}

	var document any
	if err := json.Unmarshal(raw, &document); err != nil {
		return sources
	}

	chunks, ok := root(document).
		key("candidates").
		index(0).
		key("groundingMetadata").
		key("groundingChunks").
		array()
	if !ok {
		return sources
	}

	for _, chunk := range chunks {
		web := root(chunk).key("web")
		sources = append(sources, model.GroundingSource{
			Title: web.key("title").stringOr(DefaultTitle),
			URI:   web.key("uri").stringOr(DefaultURI),
		})
	}
	return sources
}

// lookup is one step of an optional path; once a step misses, every later
// step misses too.
type lookup struct {
	value any
	ok    bool
}

func root(value any) lookup {
	return lookup{value: value, ok: value != nil}
}

func (l lookup) key(name string) lookup {
	if !l.ok {
		return l
	}
	object, ok := l.value.(map[string]any)
	if !ok {
		return lookup{}
	}
	value, ok := object[name]
	if !ok || value == nil {
		return lookup{}
	}
	return lookup{value: value, ok: true}
}

func (l lookup) index(i int) lookup {
	items, ok := l.array()
	if !ok || i < 0 || i >= len(items) || items[i] == nil {
		return lookup{}
	}
	return lookup{value: items[i], ok: true}
}

func (l lookup) array() ([]any, bool) {
	if !l.ok {
		return nil, false
	}
	items, ok := l.value.([]any)
	return items, ok
}

func (l lookup) stringOr(fallback string) string {
	if !l.ok {
		return fallback
	}
	value, ok := l.value.(string)
	if !ok || value == "" {
		return fallback
	}
	return value
}
