package tasks

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/bitsync/internal/bitable"
	"github.com/desertthunder/bitsync/internal/shared"
)

// cdnURLKeys are the synonymous input keys one upstream producer uses for
// CDN URLs. Presence of any of them forces extra to {cdn_url: value},
// superseding the caller's own extra; preserved verbatim for compatibility.
var cdnURLKeys = []string{"CDNURL", "cdn_url", "cdnUrl", "cdnurl"}

// knownInputKeys are consumed by the request merge; anything else in an input
// item is either a physical-column passthrough or ignored.
var knownInputKeys = map[string]bool{
	"task_id": true, "taskID": true, "TaskID": true,
	"biz_task_id": true, "bizTaskId": true, "BizTaskID": true,
	"record_id": true, "recordId": true, "RecordID": true,
	"parent_task_id": true, "parentTaskId": true, "ParentTaskID": true,
	"app": true, "App": true,
	"scene": true, "Scene": true,
	"params": true, "Params": true,
	"item_id": true, "itemId": true, "ItemID": true,
	"book_id": true, "bookId": true, "BookID": true,
	"url": true, "URL": true,
	"user_id": true, "userId": true, "UserID": true,
	"user_name": true, "userName": true, "UserName": true,
	"date": true, "Date": true,
	"status": true, "Status": true,
	"device_serial": true, "DeviceSerial": true,
	"dispatched_device": true, "DispatchedDevice": true,
	"dispatched_at": true, "DispatchedAt": true,
	"start_at": true, "StartAt": true,
	"completed_at": true,
	"end_at":       true, "EndAt": true,
	"elapsed_seconds": true, "ElapsedSeconds": true,
	"items_collected": true, "ItemsCollected": true,
	"logs": true, "Logs": true,
	"retry_count": true, "RetryCount": true,
	"last_screenshot": true, "LastScreenShot": true,
	"group_id": true, "GroupID": true,
	"extra": true, "Extra": true,
	"fields": true,
	"CDNURL": true, "cdn_url": true, "cdnUrl": true, "cdnurl": true,
}

// ReadInput reads bulk input from a path, or stdin when the path is "-".
func ReadInput(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// DetectInputFormat guesses json vs. jsonl: a .jsonl extension wins,
// otherwise content starting with "[" or "{" is json.
func DetectInputFormat(path string, raw []byte) string {
	if path != "" && path != "-" {
		if strings.ToLower(filepath.Ext(path)) == ".jsonl" {
			return "jsonl"
		}
	}
	stripped := strings.TrimSpace(string(raw))
	if strings.HasPrefix(stripped, "[") || strings.HasPrefix(stripped, "{") {
		return "json"
	}
	return "jsonl"
}

// ParseJSONItems accepts a JSON array of objects, a single object, or a
// wrapper object with a "tasks" array.
func ParseJSONItems(raw []byte) ([]map[string]any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	switch t := v.(type) {
	case []any:
		return objectItems(t), nil
	case map[string]any:
		if items, ok := t["tasks"].([]any); ok {
			return objectItems(items), nil
		}
		return []map[string]any{t}, nil
	default:
		return nil, nil
	}
}

func objectItems(items []any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// ParseJSONLItems parses one JSON object per line, skipping blank lines.
func ParseJSONLItems(raw []byte) ([]map[string]any, error) {
	out := []map[string]any{}
	scanner := bufio.NewScanner(strings.NewReader(string(raw)))
	// JSONL lines can be long; raise the token limit well past the default.
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}
		out = append(out, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return out, nil
}

// LoadCreateRequests returns the normalized creation payloads for a run:
// the parsed and merged bulk input when a path is given, otherwise a single
// request built from the flag defaults.
func LoadCreateRequests(path string, defaults CreateRequest, mapping FieldMap) ([]CreateRequest, error) {
	if path == "" {
		return []CreateRequest{defaults}, nil
	}

	raw, err := ReadInput(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	var items []map[string]any
	if DetectInputFormat(path, raw) == "jsonl" {
		items, err = ParseJSONLItems(raw)
	} else {
		items, err = ParseJSONItems(raw)
	}
	if err != nil {
		return nil, err
	}

	requests := make([]CreateRequest, 0, len(items))
	for _, item := range items {
		requests = append(requests, mergeCreateItem(item, defaults, mapping))
	}
	return requests, nil
}

// mergeCreateItem folds one input object over the flag defaults. Item keys
// win over defaults; PascalCase spellings backstop empty values; unknown keys
// matching mapped physical columns pass through as field overrides.
func mergeCreateItem(item map[string]any, defaults CreateRequest, mapping FieldMap) CreateRequest {
	cdnURL := ""
	for _, key := range cdnURLKeys {
		if s, ok := item[key].(string); ok && strings.TrimSpace(s) != "" {
			cdnURL = strings.TrimSpace(s)
			break
		}
	}

	extra := pickAny(item, "extra", defaults.Extra)
	forceExtra := false
	if cdnURL != "" {
		extra = map[string]any{"cdn_url": cdnURL}
		forceExtra = true
	}

	allowed := mapping.Columns()
	overrides := map[string]any{}
	for key, value := range item {
		if knownInputKeys[key] || value == nil {
			continue
		}
		if allowed[key] {
			overrides[key] = value
		}
	}
	if rawFields, ok := item["fields"].(map[string]any); ok {
		for key, value := range rawFields {
			if key != "" && value != nil {
				overrides[key] = value
			}
		}
	}
	if len(overrides) == 0 {
		overrides = nil
	}

	return CreateRequest{
		TaskID:           firstPresent(item, "task_id", "taskID", "TaskID"),
		BizTaskID:        pickString(item, "biz_task_id", "", "bizTaskId", "BizTaskID"),
		RecordID:         pickString(item, "record_id", "", "recordId", "RecordID"),
		ParentTaskID:     pickString(item, "parent_task_id", "", "parentTaskId", "ParentTaskID"),
		App:              pickString(item, "app", defaults.App, "App"),
		Scene:            pickString(item, "scene", defaults.Scene, "Scene"),
		Params:           pickString(item, "params", defaults.Params, "Params"),
		ItemID:           pickString(item, "item_id", defaults.ItemID, "ItemID"),
		BookID:           pickString(item, "book_id", defaults.BookID, "BookID"),
		URL:              pickString(item, "url", defaults.URL, "URL"),
		UserID:           pickString(item, "user_id", defaults.UserID, "UserID"),
		UserName:         pickString(item, "user_name", defaults.UserName, "UserName"),
		Date:             pickAny(item, "date", defaults.Date, "Date"),
		Status:           pickString(item, "status", defaults.Status, "Status"),
		DeviceSerial:     pickString(item, "device_serial", defaults.DeviceSerial, "DeviceSerial"),
		DispatchedDevice: pickString(item, "dispatched_device", defaults.DispatchedDevice, "DispatchedDevice"),
		DispatchedAt:     pickAny(item, "dispatched_at", defaults.DispatchedAt, "DispatchedAt"),
		StartAt:          pickAny(item, "start_at", defaults.StartAt, "StartAt"),
		CompletedAt:      pickAny(item, "completed_at", defaults.CompletedAt),
		EndAt:            pickAny(item, "end_at", defaults.EndAt, "EndAt"),
		ElapsedSeconds:   pickAny(item, "elapsed_seconds", defaults.ElapsedSeconds, "ElapsedSeconds"),
		ItemsCollected:   pickAny(item, "items_collected", defaults.ItemsCollected, "ItemsCollected"),
		Logs:             pickString(item, "logs", defaults.Logs, "Logs"),
		RetryCount:       pickAny(item, "retry_count", defaults.RetryCount, "RetryCount"),
		LastScreenshot:   pickString(item, "last_screenshot", defaults.LastScreenshot, "LastScreenShot"),
		GroupID:          pickString(item, "group_id", defaults.GroupID, "GroupID"),
		Extra:            extra,
		ForceExtra:       forceExtra,
		Fields:           overrides,
	}
}

// firstPresent returns the first non-nil, non-empty value among the keys.
func firstPresent(item map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := item[key]; ok && !isEmptyValue(v) {
			return v
		}
	}
	return nil
}

// pickString resolves a string field: the snake-case key when present,
// else the flag default, with PascalCase spellings backstopping an empty
// result.
func pickString(item map[string]any, key, fallback string, alts ...string) string {
	var value string
	if v, ok := item[key]; ok && v != nil {
		value = bitable.ValueString(v)
	} else {
		value = strings.TrimSpace(fallback)
	}
	if value == "" {
		for _, alt := range alts {
			if v, ok := item[alt]; ok && v != nil {
				if s := bitable.ValueString(v); s != "" {
					value = s
					break
				}
			}
		}
	}
	return value
}

// pickAny is pickString for values whose shape must survive (numbers, maps).
func pickAny(item map[string]any, key string, fallback any, alts ...string) any {
	var value any
	if v, ok := item[key]; ok && v != nil {
		value = v
	} else {
		value = fallback
	}
	if isEmptyValue(value) {
		for _, alt := range alts {
			if v, ok := item[alt]; ok && !isEmptyValue(v) {
				value = v
				break
			}
		}
	}
	if isEmptyValue(value) {
		return nil
	}
	return value
}

func isEmptyValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case bool:
		return !x
	case int:
		return x == 0
	case int64:
		return x == 0
	case float64:
		return x == 0
	default:
		return false
	}
}
