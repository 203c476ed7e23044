package trace

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Pair is one projected key/value row for the metadata pane.
type Pair struct {
	Key   string
	Value string
}

// priorityKeys are the well-known payload keys emitted first, in this order.
var priorityKeys = []string{
	"tool", "name", "input", "output", "error", "message", "content", "url", "selector",
}

// maxValueRunes caps the rendered length of a single projected value.
const maxValueRunes = 120

// maxCompactObject is the longest compact serialization shown inline for a
// small nested object; anything longer collapses to a field-count marker.
const maxCompactObject = 50

// nullPlaceholder renders an explicit JSON null. A missing key is omitted
// entirely; a null one is kept, so the two remain distinguishable.
const nullPlaceholder = "null"

// ProjectMetadata flattens a free-form event payload into an ordered list
// of key/value pairs: well-known keys first, then the rest in sorted key
// order. It is total; no payload shape makes it fail.
func ProjectMetadata(payload map[string]any) []Pair {
	if len(payload) == 0 {
		return nil
	}

	pairs := make([]Pair, 0, len(payload))
	seen := make(map[string]bool, len(priorityKeys))

	for _, key := range priorityKeys {
		val, ok := payload[key]
		if !ok {
			continue
		}
		seen[key] = true
		pairs = append(pairs, Pair{Key: key, Value: renderValue(val)})
	}

	rest := make([]string, 0, len(payload))
	for key := range payload {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)

	for _, key := range rest {
		pairs = append(pairs, Pair{Key: key, Value: renderValue(payload[key])})
	}

	return pairs
}

// renderValue produces the display string for a single payload value.
func renderValue(val any) string {
	switch v := val.(type) {
	case nil:
		return nullPlaceholder
	case string:
		return truncateRunes(v, maxValueRunes)
	case map[string]any:
		return summarizeObject(v)
	case []any:
		return summarizeArray(v)
	default:
		return truncateRunes(fmt.Sprintf("%v", v), maxValueRunes)
	}
}

// summarizeObject collapses a nested object: empty marker, compact
// serialization for small objects, or a field-count marker.
func summarizeObject(obj map[string]any) string {
	if len(obj) == 0 {
		return "{}"
	}
	if len(obj) <= 2 {
		if compact, err := json.Marshal(obj); err == nil && len(compact) <= maxCompactObject {
			return string(compact)
		}
	}
	return fmt.Sprintf("{%d fields}", len(obj))
}

// summarizeArray collapses a list value the same way objects collapse.
func summarizeArray(arr []any) string {
	if len(arr) == 0 {
		return "[]"
	}
	if compact, err := json.Marshal(arr); err == nil && len(compact) <= maxCompactObject {
		return string(compact)
	}
	return fmt.Sprintf("[%d items]", len(arr))
}

// truncateRunes cuts s at limit runes, appending an ellipsis when cut.
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
