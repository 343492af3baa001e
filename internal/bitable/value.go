package bitable

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Candidate key orders for object normalization. The order is part of the
// output contract; callers depend on it being reproducible.
var (
	nestedValueKeys = []string{"value", "values", "elements", "content"}
	identityKeys    = []string{"link", "name", "en_name", "email", "id", "user_id", "url", "tmp_url", "file_token"}
	geoKeys         = []string{"location", "pname", "cityname", "adname"}
)

// ValueString normalizes a raw cell value and trims the result.
func ValueString(v any) string {
	return strings.TrimSpace(Normalize(v))
}

// Normalize converts an arbitrary Bitable cell value into a display string.
//
// Column types are heterogeneous and undocumented per install, so this is a
// total function: any shape degrades to a legible string rather than failing
// the page it arrived on.
func Normalize(v any) string {
	if v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case []byte:
		return strings.TrimSpace(string(x))
	case bool:
		if x {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []any:
		return normalizeArray(x)
	case map[string]any:
		return normalizeObject(x)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// normalizeArray joins rich-text runs with spaces and anything else with commas.
func normalizeArray(items []any) string {
	if len(items) == 0 {
		return ""
	}
	if isRichTextArray(items) {
		return joinRichText(items)
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(Normalize(it)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ",")
}

func normalizeObject(obj map[string]any) string {
	if len(obj) == 0 {
		return ""
	}
	for _, k := range nestedValueKeys {
		if nv, ok := obj[k]; ok {
			if s := strings.TrimSpace(Normalize(nv)); s != "" {
				return s
			}
		}
	}
	if t, ok := obj["text"].(string); ok {
		if s := strings.TrimSpace(t); s != "" {
			return s
		}
	}
	for _, k := range identityKeys {
		if nv, ok := obj[k]; ok {
			if s := strings.TrimSpace(Normalize(nv)); s != "" {
				return s
			}
		}
	}
	if hasGeoShape(obj) {
		parts := make([]string, 0, len(geoKeys))
		for _, k := range geoKeys {
			if s := strings.TrimSpace(Normalize(obj[k])); s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, ",")
		}
	}
	return MarshalCompact(obj)
}

func hasGeoShape(obj map[string]any) bool {
	if _, ok := obj["address"]; ok {
		return true
	}
	for _, k := range geoKeys {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}

// isRichTextArray reports whether any element carries a "text" key, which is
// how rich-text cells arrive from the API.
func isRichTextArray(items []any) bool {
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			if _, ok := m["text"]; ok {
				return true
			}
		}
	}
	return false
}

// joinRichText joins the non-empty text runs with single spaces, falling back
// to each run's nested value when the text is absent or blank.
func joinRichText(items []any) string {
	parts := []string{}
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			if s := strings.TrimSpace(Normalize(it)); s != "" {
				parts = append(parts, s)
			}
			continue
		}
		if t, ok := m["text"].(string); ok && strings.TrimSpace(t) != "" {
			parts = append(parts, strings.TrimSpace(t))
			continue
		}
		if nv, ok := m["value"]; ok {
			if s := strings.TrimSpace(Normalize(nv)); s != "" {
				parts = append(parts, s)
				continue
			}
		}
		if s := strings.TrimSpace(Normalize(it)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// MarshalCompact serializes v as single-line JSON without HTML escaping, so
// non-ASCII cell content survives round trips. Returns "" when v cannot be
// serialized.
func MarshalCompact(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimSpace(buf.String())
}
