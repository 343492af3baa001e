package tasks

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/bitsync/internal/shared"
)

func TestDetectInputFormat(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		raw      string
		expected string
	}{
		{"jsonl extension wins", "tasks.JSONL", `[{"a":1}]`, "jsonl"},
		{"array content is json", "tasks.txt", ` [{"a":1}]`, "json"},
		{"object content is json", "-", `{"a":1}`, "json"},
		{"line content is jsonl", "", "not json", "jsonl"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectInputFormat(tc.path, []byte(tc.raw)); got != tc.expected {
				t.Errorf("expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestParseJSONItems(t *testing.T) {
	t.Run("array of objects", func(t *testing.T) {
		items, err := ParseJSONItems([]byte(`[{"item_id":"a"},{"item_id":"b"},3]`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(items))
		}
		if items[1]["item_id"] != "b" {
			t.Errorf("unexpected item: %v", items[1])
		}
	})

	t.Run("single object", func(t *testing.T) {
		items, err := ParseJSONItems([]byte(`{"item_id":"a"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 1 || items[0]["item_id"] != "a" {
			t.Errorf("unexpected items: %v", items)
		}
	})

	t.Run("tasks wrapper", func(t *testing.T) {
		items, err := ParseJSONItems([]byte(`{"tasks":[{"item_id":"a"},{"item_id":"b"}]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 2 {
			t.Errorf("expected 2 items, got %d", len(items))
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		if _, err := ParseJSONItems([]byte(`{oops`)); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected invalid input error, got %v", err)
		}
	})
}

func TestParseJSONLItems(t *testing.T) {
	t.Run("skips blank lines", func(t *testing.T) {
		raw := "{\"item_id\":\"a\"}\n\n  \n{\"item_id\":\"b\"}\n"
		items, err := ParseJSONLItems([]byte(raw))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 2 {
			t.Errorf("expected 2 items, got %d", len(items))
		}
	})

	t.Run("invalid line fails", func(t *testing.T) {
		if _, err := ParseJSONLItems([]byte("{\"a\":1}\nnope\n")); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected invalid input error, got %v", err)
		}
	})

	t.Run("long lines survive", func(t *testing.T) {
		line := `{"logs":"` + strings.Repeat("x", 200*1024) + `"}`
		items, err := ParseJSONLItems([]byte(line))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 1 {
			t.Errorf("expected 1 item, got %d", len(items))
		}
	})
}

func TestLoadCreateRequests(t *testing.T) {
	mapping := NewFieldMap(nil)

	writeInput := func(t *testing.T, name, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	t.Run("no path yields the flag defaults", func(t *testing.T) {
		reqs, err := LoadCreateRequests("", CreateRequest{ItemID: "solo"}, mapping)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(reqs) != 1 || reqs[0].ItemID != "solo" {
			t.Errorf("unexpected requests: %v", reqs)
		}
	})

	t.Run("missing file fails", func(t *testing.T) {
		if _, err := LoadCreateRequests("/nonexistent/input.json", CreateRequest{}, mapping); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("item keys win over defaults", func(t *testing.T) {
		path := writeInput(t, "in.json", `[{"item_id":"from-item","scene":"detail"}]`)
		reqs, err := LoadCreateRequests(path, CreateRequest{ItemID: "from-flag", App: "acme"}, mapping)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reqs[0].ItemID != "from-item" {
			t.Errorf("expected item value to win, got %s", reqs[0].ItemID)
		}
		if reqs[0].App != "acme" {
			t.Errorf("expected default to fill, got %s", reqs[0].App)
		}
	})

	t.Run("pascal case spellings backstop", func(t *testing.T) {
		path := writeInput(t, "in.json", `[{"ItemID":"pascal","UserId":"ignored","UserID":"u9"}]`)
		reqs, err := LoadCreateRequests(path, CreateRequest{}, mapping)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reqs[0].ItemID != "pascal" {
			t.Errorf("expected pascal, got %s", reqs[0].ItemID)
		}
		if reqs[0].UserID != "u9" {
			t.Errorf("expected u9, got %s", reqs[0].UserID)
		}
	})

	t.Run("cdn url replaces extra", func(t *testing.T) {
		path := writeInput(t, "in.jsonl", `{"item_id":"a","cdnUrl":" https://cdn/x ","extra":{"keep":"no"}}`)
		reqs, err := LoadCreateRequests(path, CreateRequest{}, mapping)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		extra, ok := reqs[0].Extra.(map[string]any)
		if !ok || extra["cdn_url"] != "https://cdn/x" {
			t.Errorf("unexpected extra: %v", reqs[0].Extra)
		}
		if !reqs[0].ForceExtra {
			t.Error("expected forced extra")
		}
	})

	t.Run("physical columns pass through", func(t *testing.T) {
		renamed := NewFieldMap(map[string]string{FieldGroupID: "分组ID"})
		path := writeInput(t, "in.json", `[{"item_id":"a","分组ID":"g1","unmapped":"dropped"}]`)
		reqs, err := LoadCreateRequests(path, CreateRequest{}, renamed)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reqs[0].Fields["分组ID"] != "g1" {
			t.Errorf("expected passthrough, got %v", reqs[0].Fields)
		}
		if _, ok := reqs[0].Fields["unmapped"]; ok {
			t.Errorf("expected unmapped key to drop, got %v", reqs[0].Fields)
		}
	})

	t.Run("fields map merges into overrides", func(t *testing.T) {
		path := writeInput(t, "in.json", `[{"item_id":"a","fields":{"负责人":"alice"}}]`)
		reqs, err := LoadCreateRequests(path, CreateRequest{}, mapping)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reqs[0].Fields["负责人"] != "alice" {
			t.Errorf("unexpected overrides: %v", reqs[0].Fields)
		}
	})

	t.Run("numeric task ids survive", func(t *testing.T) {
		path := writeInput(t, "in.json", `[{"task_id":42,"item_id":"a"}]`)
		reqs, err := LoadCreateRequests(path, CreateRequest{}, mapping)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reqs[0].TaskID != float64(42) {
			t.Errorf("expected numeric id, got %v (%T)", reqs[0].TaskID, reqs[0].TaskID)
		}
	})
}
