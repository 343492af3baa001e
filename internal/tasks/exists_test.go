package tasks

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/desertthunder/bitsync/internal/bitable"
	tu "github.com/desertthunder/bitsync/internal/testing"
)

func TestNormalizeSkipFields(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{"blank input", "  ", nil},
		{"aliases resolve and dedupe", "task_id, TaskID ,taskid", []string{FieldTaskID}},
		{"record id is special cased", "record_id", []string{"RecordID"}},
		{"mixed spellings", "biz_task_id,BookID,app", []string{FieldBizTaskID, FieldBookID, FieldApp}},
		{"unknown names pass through", "负责人", []string{"负责人"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeSkipFields(tc.raw); !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestNormalizeSkipStatuses(t *testing.T) {
	if got := NormalizeSkipStatuses(""); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
	got := NormalizeSkipStatuses(" done, failed ,done,")
	if !reflect.DeepEqual(got, []string{"done", "failed"}) {
		t.Errorf("expected [done failed], got %v", got)
	}
}

func TestChunkStrings(t *testing.T) {
	values := []string{"a", "b", "c", "d", "e"}
	chunks := chunkStrings(values, 2)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if !reflect.DeepEqual(chunks[2], []string{"e"}) {
		t.Errorf("unexpected tail chunk: %v", chunks[2])
	}

	chunks = chunkStrings(values, 0)
	if len(chunks) != 1 || len(chunks[0]) != 5 {
		t.Errorf("expected a single chunk, got %v", chunks)
	}
}

func TestResolveExistingByField(t *testing.T) {
	ref := bitable.TableRef{AppToken: "appX", TableID: "tblX"}

	t.Run("first row seen wins", func(t *testing.T) {
		mock := &tu.MockStore{
			SearchFunc: func(ctx context.Context, ref bitable.TableRef, opts bitable.SearchOpts) ([]bitable.Record, bitable.PageInfo, error) {
				return []bitable.Record{
					{RecordID: "rec1", Fields: map[string]any{"TaskID": "7"}},
					{RecordID: "rec2", Fields: map[string]any{"TaskID": "7"}},
					{RecordID: "rec3", Fields: map[string]any{"TaskID": "9"}},
					{RecordID: "", Fields: map[string]any{"TaskID": "11"}},
				}, bitable.PageInfo{}, nil
			},
		}
		engine := NewEngine(mock, ref, NewFieldMap(nil), nil)

		existing, err := engine.ResolveExistingByField(context.Background(), "TaskID", []string{"7", "9", "11", "13"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if existing["7"] != "rec1" {
			t.Errorf("expected first match to win, got %s", existing["7"])
		}
		if existing["9"] != "rec3" {
			t.Errorf("expected rec3, got %s", existing["9"])
		}
		if _, ok := existing["11"]; ok {
			t.Error("expected a blank record id to be ignored")
		}
		if _, ok := existing["13"]; ok {
			t.Error("expected an unmatched value to be absent")
		}
	})

	t.Run("large value sets batch into bounded filters", func(t *testing.T) {
		mock := &tu.MockStore{}
		engine := NewEngine(mock, ref, NewFieldMap(nil), nil)

		values := make([]string, 120)
		for i := range values {
			values[i] = fmt.Sprintf("%d", i+1)
		}
		if _, err := engine.ResolveExistingByField(context.Background(), "TaskID", values); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(mock.SearchCalls) != 3 {
			t.Fatalf("expected 3 search calls, got %d", len(mock.SearchCalls))
		}
		first := mock.SearchCalls[0]
		if first.MaxPages != 1 || first.PageSize != MaxFilterValues {
			t.Errorf("unexpected search opts: %+v", first)
		}
		if len(first.Filter.Conditions) != MaxFilterValues || first.Filter.Conjunction != "or" {
			t.Errorf("unexpected filter: %+v", first.Filter)
		}
		last := mock.SearchCalls[2]
		if len(last.Filter.Conditions) != 20 || last.PageSize != 20 {
			t.Errorf("unexpected tail batch: %+v", last)
		}
	})

	t.Run("duplicated values collapse before batching", func(t *testing.T) {
		mock := &tu.MockStore{}
		engine := NewEngine(mock, ref, NewFieldMap(nil), nil)

		values := make([]string, 60)
		for i := range values {
			values[i] = "7"
		}
		if _, err := engine.ResolveExistingByField(context.Background(), "TaskID", values); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(mock.SearchCalls) != 1 {
			t.Fatalf("expected 1 search call, got %d", len(mock.SearchCalls))
		}
		opts := mock.SearchCalls[0]
		if len(opts.Filter.Conditions) != 1 || opts.PageSize != 1 {
			t.Errorf("unexpected search opts: %+v", opts)
		}
	})

	t.Run("no values means no calls", func(t *testing.T) {
		mock := &tu.MockStore{}
		engine := NewEngine(mock, ref, NewFieldMap(nil), nil)

		existing, err := engine.ResolveExistingByField(context.Background(), "TaskID", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(existing) != 0 || len(mock.SearchCalls) != 0 {
			t.Errorf("expected no lookups, got %v / %d calls", existing, len(mock.SearchCalls))
		}
	})
}
