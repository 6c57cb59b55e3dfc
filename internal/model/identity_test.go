package model

import (
	"encoding/json"
	"testing"
)

func TestLineKey(t *testing.T) {
	key := LineKey("prod-1", "M", "Red")
	if key != "prod-1|M|Red" {
		t.Errorf("LineKey = %q, want %q", key, "prod-1|M|Red")
	}

	// Empty axes stand in for "no selection" and still produce stable keys
	if LineKey("prod-1", "", "") != "prod-1||" {
		t.Errorf("LineKey with empty axes = %q", LineKey("prod-1", "", ""))
	}
}

func TestLineKey_MatchesIdentityAndLine(t *testing.T) {
	line := CartLine{ProductID: "prod-1", SelectedSize: "S", SelectedColor: "Blue"}
	id := LineIdentity{ProductID: "prod-1", Size: "S", Color: "Blue"}

	if line.Key() != id.Key() {
		t.Errorf("line key %q != identity key %q", line.Key(), id.Key())
	}
}

func TestNormalizeColor(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"plain string", "Red", "Red"},
		{"nil", nil, ""},
		{"object with name", map[string]any{"name": "Red"}, "Red"},
		{"object with value", map[string]any{"value": "Blue"}, "Blue"},
		{"object with label", map[string]any{"label": "Green"}, "Green"},
		{"name wins over value", map[string]any{"name": "Red", "value": "Blue"}, "Red"},
		{"blank name falls through", map[string]any{"name": "  ", "value": "Blue"}, "Blue"},
		{"unknown shape", map[string]any{"hex": "#ff0000"}, ""},
		{"unsupported type", 42, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeColor(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeColor(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestColorValue_UnmarshalString(t *testing.T) {
	var c ColorValue
	if err := json.Unmarshal([]byte(`"Red"`), &c); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if c.String() != "Red" {
		t.Errorf("String() = %q, want Red", c.String())
	}
}

func TestColorValue_UnmarshalObject(t *testing.T) {
	var c ColorValue
	if err := json.Unmarshal([]byte(`{"name":"Red","hex":"#f00"}`), &c); err != nil {
		t.Fatalf("unmarshal object: %v", err)
	}
	if c.String() != "Red" {
		t.Errorf("String() = %q, want Red", c.String())
	}
}

func TestColorValue_StringAndObjectAgree(t *testing.T) {
	// The same user-visible selection must normalize identically
	// regardless of which wire shape it arrived in.
	var fromString, fromObject ColorValue
	if err := json.Unmarshal([]byte(`"Red"`), &fromString); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(`{"name":"Red"}`), &fromObject); err != nil {
		t.Fatal(err)
	}

	if fromString.String() != fromObject.String() {
		t.Errorf("string form %q != object form %q", fromString.String(), fromObject.String())
	}
}

func TestColorValue_Null(t *testing.T) {
	var c ColorValue
	if err := json.Unmarshal([]byte(`null`), &c); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if c.String() != "" {
		t.Errorf("String() = %q, want empty", c.String())
	}

	out, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != "null" {
		t.Errorf("marshal unset = %s, want null", out)
	}
}
