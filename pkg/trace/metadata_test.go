package trace

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

// TestProjectMetadataOrdering verifies well-known keys come first in fixed
// order, followed by the remaining keys sorted.
func TestProjectMetadataOrdering(t *testing.T) {
	payload := map[string]any{
		"zebra":  "z",
		"output": "done",
		"alpha":  "a",
		"tool":   "browser",
		"url":    "https://example.com",
	}

	pairs := ProjectMetadata(payload)

	gotKeys := make([]string, len(pairs))
	for i, p := range pairs {
		gotKeys[i] = p.Key
	}

	wantKeys := []string{"tool", "output", "url", "alpha", "zebra"}
	if !reflect.DeepEqual(gotKeys, wantKeys) {
		t.Errorf("ProjectMetadata() key order = %v, want %v", gotKeys, wantKeys)
	}
}

// TestProjectMetadataNullRetained verifies the missing-vs-null asymmetry:
// an absent key produces no pair, an explicit null produces a placeholder.
func TestProjectMetadataNullRetained(t *testing.T) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(`{"tool":null,"name":"click"}`), &payload); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}

	pairs := ProjectMetadata(payload)

	if len(pairs) != 2 {
		t.Fatalf("ProjectMetadata() returned %d pairs, want 2: %v", len(pairs), pairs)
	}
	if pairs[0].Key != "tool" || pairs[0].Value != nullPlaceholder {
		t.Errorf("null value pair = %+v, want tool=%s", pairs[0], nullPlaceholder)
	}
	if pairs[1].Key != "name" || pairs[1].Value != "click" {
		t.Errorf("string value pair = %+v, want name=click", pairs[1])
	}
}

// TestProjectMetadataNestedObjects verifies the object summarization policy.
func TestProjectMetadataNestedObjects(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{
			name:  "empty object uses empty marker",
			value: map[string]any{},
			want:  "{}",
		},
		{
			name:  "small object serialized compactly",
			value: map[string]any{"x": float64(1), "y": float64(2)},
			want:  `{"x":1,"y":2}`,
		},
		{
			name: "small object with long serialization collapses to count",
			value: map[string]any{
				"selector": strings.Repeat("div > ", 20),
			},
			want: "{1 fields}",
		},
		{
			name: "wide object collapses to count",
			value: map[string]any{
				"a": 1, "b": 2, "c": 3, "d": 4,
			},
			want: "{4 fields}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairs := ProjectMetadata(map[string]any{"input": tt.value})
			if len(pairs) != 1 {
				t.Fatalf("ProjectMetadata() returned %d pairs, want 1", len(pairs))
			}
			if pairs[0].Value != tt.want {
				t.Errorf("summarized value = %q, want %q", pairs[0].Value, tt.want)
			}
		})
	}
}

// TestProjectMetadataTotal feeds hostile payload shapes and expects no panic
// and a sane result for each.
func TestProjectMetadataTotal(t *testing.T) {
	payloads := []map[string]any{
		nil,
		{},
		{"": nil},
		{"tool": []any{map[string]any{"deep": []any{1, 2, 3}}}},
		{"n": float64(3.14), "b": true, "neg": float64(-1)},
		{"huge": strings.Repeat("x", 10_000)},
	}

	for _, payload := range payloads {
		pairs := ProjectMetadata(payload)
		if len(pairs) > len(payload) {
			t.Errorf("ProjectMetadata() produced %d pairs for %d keys", len(pairs), len(payload))
		}
		for _, p := range pairs {
			if len([]rune(p.Value)) > maxValueRunes+3 {
				t.Errorf("value for %q exceeds truncation limit: %d runes", p.Key, len([]rune(p.Value)))
			}
		}
	}
}

// TestProjectMetadataLongStringTruncated verifies rune-safe truncation.
func TestProjectMetadataLongStringTruncated(t *testing.T) {
	long := strings.Repeat("é", maxValueRunes+50)
	pairs := ProjectMetadata(map[string]any{"message": long})

	if len(pairs) != 1 {
		t.Fatalf("ProjectMetadata() returned %d pairs, want 1", len(pairs))
	}
	got := pairs[0].Value
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated value missing ellipsis: %q", got[len(got)-10:])
	}
	if n := len([]rune(got)); n != maxValueRunes+3 {
		t.Errorf("truncated value is %d runes, want %d", n, maxValueRunes+3)
	}
}
