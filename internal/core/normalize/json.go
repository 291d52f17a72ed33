// Package normalize converts free-form extracted text and untrusted LLM
// output into the typed per-document payloads. LLM responses are never
// trusted directly: they pass through ExtractJSON and the coercers here, and
// every entry point has a deterministic fallback that cannot fail.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ExtractJSON returns the first balanced {...} or [...] substring of raw.
// LLMs routinely wrap JSON in prose or markdown fences; this is the second
// parsing pass before giving up on a response.
func ExtractJSON(raw string) (string, error) {
	start := strings.IndexAny(raw, "{[")
	if start < 0 {
		return "", fmt.Errorf("no JSON object in response")
	}

	open := raw[start]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON in response")
}

func decodeObject(raw string) (map[string]any, error) {
	candidate, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, fmt.Errorf("decode response object: %w", err)
	}
	return obj, nil
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// asFloat coerces numbers that arrive as JSON numbers or as strings like
// "3.6", "40%", or "40 %".
func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), "%"))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asObject(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func firstKey(obj map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}
