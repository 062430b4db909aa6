// Package reconcile aligns an untrusted upstream payload with the indicator
// catalog. The output always holds one indicator per catalog entry.
package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"macrodash/internal/model"
)

var ErrMalformedResponse = errors.New("reconcile: malformed response")

// Reconcile extracts the JSON object embedded in text and maps its
// "indicators" entries onto specs, preserving spec order.
func Reconcile(text string, specs []model.IndicatorSpec) ([]model.Indicator, error) {
	object, err := ExtractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	decoder := json.NewDecoder(strings.NewReader(object))
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	entries := indexByID(payload)
	indicators := make([]model.Indicator, 0, len(specs))
	for _, spec := range specs {
		data := []model.DataPoint{}
		if entry, ok := entries[spec.ID]; ok {
			if raw, ok := entry["data"].([]any); ok {
				data = toDataPoints(raw)
			}
		}
		indicators = append(indicators, model.Indicator{IndicatorSpec: spec, Data: data})
	}
	return indicators, nil
}

// ExtractJSONObject returns the first balanced {...} in text. Braces inside
// JSON string literals do not count toward nesting.
func ExtractJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("%w: unbalanced JSON object", ErrMalformedResponse)
}

func indexByID(payload map[string]any) map[string]map[string]any {
	items, ok := payload["indicators"].([]any)
	if !ok {
		return nil
	}
	entries := make(map[string]map[string]any, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, ok := entry["id"].(string)
		if !ok {
			continue
		}
		if _, exists := entries[id]; exists {
			continue
		}
		entries[id] = entry
	}
	return entries
}

func toDataPoints(raw []any) []model.DataPoint {
	points := make([]model.DataPoint, 0, len(raw))
	for _, item := range raw {
		row, ok := item.(map[string]any)
		if !ok {
			continue
		}
		date, _ := getString(row, "date")
		value, _ := getFloat(row, "value")
		points = append(points, model.DataPoint{Date: date, Value: value})
	}
	return points
}

func getString(row map[string]any, key string) (string, bool) {
	switch typed := row[key].(type) {
	case string:
		return typed, true
	case json.Number:
		return typed.String(), true
	default:
		return "", false
	}
}

func getFloat(row map[string]any, key string) (float64, bool) {
	switch typed := row[key].(type) {
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
