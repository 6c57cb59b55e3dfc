package model

import (
	"encoding/json"
	"strings"
)

// keyDelimiter separates the identity fields in a line key.
// Product IDs, sizes, and colors never contain it.
const keyDelimiter = "|"

// LineKey builds the canonical merge key for a cart line.
// Two lines are the same line iff their keys are equal; this triple is the
// only merge key the engine uses. Size and color must be the normalized
// scalar forms; empty string stands in for "no selection".
func LineKey(productID, size, color string) string {
	return productID + keyDelimiter + size + keyDelimiter + color
}

// VariantKey builds the lookup key for a product's variant map.
// Uses the same normalized (size, color) composite as LineKey so a UI
// selection maps to its stock and price facts in one lookup.
func VariantKey(size, color string) string {
	return size + keyDelimiter + color
}

// NormalizeColor coerces a color of unknown shape to its scalar form.
// Upstream payloads carry colors either as a plain string or as an object
// exposing name/value/label; the first non-empty field wins. Unknown shapes
// normalize to the empty string. Every boundary where a color enters the
// system must pass through this (or ColorValue); inconsistent
// normalization splits one user-visible selection into duplicate lines.
func NormalizeColor(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case ColorValue:
		return c.String()
	case *ColorValue:
		if c == nil {
			return ""
		}
		return c.String()
	case map[string]any:
		for _, field := range []string{"name", "value", "label"} {
			if s, ok := c[field].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
		return ""
	default:
		return ""
	}
}

// ColorValue decodes a color that may arrive as a string or a structured
// object. Marshals back out as the normalized scalar.
type ColorValue struct {
	value string
}

// Color wraps an already-normalized scalar in a ColorValue.
func Color(s string) ColorValue {
	return ColorValue{value: s}
}

// String returns the normalized scalar form, empty when no color is set.
func (c ColorValue) String() string {
	return c.value
}

// UnmarshalJSON handles "Red", {"name":"Red"}, {"value":"Red"},
// {"label":"Red"}, and null.
func (c *ColorValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		c.value = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.value = s
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	c.value = NormalizeColor(obj)
	return nil
}

// MarshalJSON writes the scalar form, null when unset.
func (c ColorValue) MarshalJSON() ([]byte, error) {
	if c.value == "" {
		return []byte("null"), nil
	}
	return json.Marshal(c.value)
}
