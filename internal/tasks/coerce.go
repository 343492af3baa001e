package tasks

import (
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/bitsync/internal/bitable"
)

// epochSecondsCutoff distinguishes epoch seconds from epoch milliseconds by
// magnitude: anything below ~Mar 2973 in seconds is treated as seconds.
const epochSecondsCutoff = 100000000000

// CoerceInt accepts integers, integral floats and numeric strings. The ok
// result is false for any other shape or on parse failure; booleans are
// rejected on purpose.
func CoerceInt(v any) (int, bool) {
	switch x := v.(type) {
	case nil, bool:
		return 0, false
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return int(f), true
	default:
		return 0, false
	}
}

// CoerceMillis accepts epoch milliseconds, epoch seconds, ISO-8601 style
// timestamps and the literal "now", returning epoch milliseconds.
func CoerceMillis(v any) (int64, bool) {
	switch x := v.(type) {
	case nil, bool:
		return 0, false
	case int:
		return normalizeEpochMillis(int64(x)), true
	case int64:
		return normalizeEpochMillis(x), true
	case float64:
		return normalizeEpochMillis(int64(x)), true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		if strings.EqualFold(s, "now") {
			return time.Now().UnixMilli(), true
		}
		if onlyDigits(s) {
			n, _ := strconv.ParseInt(s, 10, 64)
			return normalizeEpochMillis(n), true
		}
		if t, ok := parseDatetime(s); ok {
			return t.UnixMilli(), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// CoerceDatePayload coerces a date input into the store's expected payload:
// epoch milliseconds where the input is time-like, otherwise the raw string
// (named presets like "Today" pass through).
func CoerceDatePayload(v any) (any, bool) {
	switch x := v.(type) {
	case nil, bool:
		return nil, false
	case int:
		return normalizeEpochMillis(int64(x)), true
	case int64:
		return normalizeEpochMillis(x), true
	case float64:
		return normalizeEpochMillis(int64(x)), true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, false
		}
		if strings.EqualFold(s, "now") {
			return time.Now().UnixMilli(), true
		}
		if onlyDigits(s) {
			n, _ := strconv.ParseInt(s, 10, 64)
			return normalizeEpochMillis(n), true
		}
		if t, ok := parseDatetime(s); ok {
			return t.UnixMilli(), true
		}
		return s, true
	default:
		return nil, false
	}
}

// NormalizeExtra flattens the extra payload into a string: raw strings are
// trimmed, anything else is serialized as compact JSON.
func NormalizeExtra(extra any) string {
	if extra == nil {
		return ""
	}
	if s, ok := extra.(string); ok {
		return strings.TrimSpace(s)
	}
	return bitable.MarshalCompact(extra)
}

func normalizeEpochMillis(n int64) int64 {
	if n < epochSecondsCutoff {
		return n * 1000
	}
	return n
}

func parseDatetime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	for _, layout := range []string{
		"2006-01-02 15:04:05",
		"2006-01-02",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05.000000",
		"2006-01-02T15:04:05.000",
	} {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func onlyDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
