package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/bitsync/internal/bitable"
	tu "github.com/desertthunder/bitsync/internal/testing"
)

func TestBuildUpdateFields(t *testing.T) {
	mapping := NewFieldMap(nil)

	t.Run("status and logs are trimmed", func(t *testing.T) {
		fields := BuildUpdateFields(mapping, &UpdateRequest{Status: " done ", Logs: "ok"})
		if fields["Status"] != "done" || fields["Logs"] != "ok" {
			t.Errorf("unexpected fields: %v", fields)
		}
	})

	t.Run("device serial fills both device columns", func(t *testing.T) {
		fields := BuildUpdateFields(mapping, &UpdateRequest{DeviceSerial: "dev-7"})
		if fields["DeviceSerial"] != "dev-7" || fields["DispatchedDevice"] != "dev-7" {
			t.Errorf("unexpected fields: %v", fields)
		}
	})

	t.Run("timestamp fallback chain matches creation", func(t *testing.T) {
		fields := BuildUpdateFields(mapping, &UpdateRequest{
			DispatchedAt: int64(1755648000000),
			CompletedAt:  int64(1755648004000),
			EndAt:        int64(1755648002000),
		})
		if fields["StartAt"] != int64(1755648000000) {
			t.Errorf("expected start fallback, got %v", fields["StartAt"])
		}
		if fields["EndAt"] != int64(1755648004000) {
			t.Errorf("expected completion time, got %v", fields["EndAt"])
		}
		if fields["ElapsedSeconds"] != 4 {
			t.Errorf("expected derived elapsed, got %v", fields["ElapsedSeconds"])
		}
	})

	t.Run("blank extra is never emitted", func(t *testing.T) {
		fields := BuildUpdateFields(mapping, &UpdateRequest{Status: "done", Extra: "  "})
		if _, ok := fields["Extra"]; ok {
			t.Errorf("expected no extra, got %v", fields["Extra"])
		}
	})
}

func TestEngineUpdate(t *testing.T) {
	t.Run("record id targets write directly", func(t *testing.T) {
		mock := &tu.MockStore{}
		engine := NewEngine(mock, testRef, NewFieldMap(nil), nil)

		summary, err := engine.Update(context.Background(), []UpdateRequest{
			{RecordID: "recXYZ", Status: "done"},
		}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Updated != 1 {
			t.Errorf("unexpected summary: %+v", summary)
		}
		if len(mock.UpdateCalls) != 1 || mock.UpdateCalls[0].RecordID != "recXYZ" {
			t.Fatalf("unexpected calls: %+v", mock.UpdateCalls)
		}
		if mock.UpdateCalls[0].Fields["Status"] != "done" {
			t.Errorf("unexpected fields: %v", mock.UpdateCalls[0].Fields)
		}
		if len(mock.GetCalls) != 0 {
			t.Error("did not expect a status probe without skip statuses")
		}
	})

	t.Run("task id targets resolve through search", func(t *testing.T) {
		mock := &tu.MockStore{
			SearchFunc: func(ctx context.Context, ref bitable.TableRef, opts bitable.SearchOpts) ([]bitable.Record, bitable.PageInfo, error) {
				return []bitable.Record{
					{RecordID: "recFOUND", Fields: map[string]any{"TaskID": "7"}},
				}, bitable.PageInfo{}, nil
			},
		}
		engine := NewEngine(mock, testRef, NewFieldMap(nil), nil)

		summary, err := engine.Update(context.Background(), []UpdateRequest{
			{TaskID: 7, Status: "done"},
		}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Updated != 1 {
			t.Errorf("unexpected summary: %+v", summary)
		}
		if mock.UpdateCalls[0].RecordID != "recFOUND" {
			t.Errorf("expected recFOUND, got %s", mock.UpdateCalls[0].RecordID)
		}
	})

	t.Run("biz task id is the last resort", func(t *testing.T) {
		mock := &tu.MockStore{
			SearchFunc: func(ctx context.Context, ref bitable.TableRef, opts bitable.SearchOpts) ([]bitable.Record, bitable.PageInfo, error) {
				if opts.Filter.Conditions[0].FieldName != "BizTaskID" {
					return []bitable.Record{}, bitable.PageInfo{}, nil
				}
				return []bitable.Record{
					{RecordID: "recBIZ", Fields: map[string]any{"BizTaskID": "biz-1"}},
				}, bitable.PageInfo{}, nil
			},
		}
		engine := NewEngine(mock, testRef, NewFieldMap(nil), nil)

		summary, err := engine.Update(context.Background(), []UpdateRequest{
			{BizTaskID: "biz-1", Status: "done"},
		}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Updated != 1 || mock.UpdateCalls[0].RecordID != "recBIZ" {
			t.Errorf("unexpected result: %+v / %+v", summary, mock.UpdateCalls)
		}
	})

	t.Run("unmatched targets land in errors", func(t *testing.T) {
		mock := &tu.MockStore{}
		engine := NewEngine(mock, testRef, NewFieldMap(nil), nil)

		summary, err := engine.Update(context.Background(), []UpdateRequest{
			{TaskID: 404, Status: "done"},
		}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Failed != 1 || !strings.Contains(summary.Errors[0], "no matching record") {
			t.Errorf("unexpected summary: %+v", summary)
		}
		if len(mock.UpdateCalls) != 0 {
			t.Error("expected no writes")
		}
	})

	t.Run("skip statuses probe the current row", func(t *testing.T) {
		mock := &tu.MockStore{
			GetFunc: func(ctx context.Context, ref bitable.TableRef, recordID string) (*bitable.Record, error) {
				if recordID == "recDONE" {
					return &bitable.Record{RecordID: recordID, Fields: map[string]any{"Status": "done"}}, nil
				}
				return &bitable.Record{RecordID: recordID, Fields: map[string]any{"Status": "pending"}}, nil
			},
		}
		engine := NewEngine(mock, testRef, NewFieldMap(nil), nil)

		summary, err := engine.Update(context.Background(), []UpdateRequest{
			{RecordID: "recDONE", Status: "failed"},
			{RecordID: "recPEND", Status: "failed"},
		}, []string{"done"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Skipped != 1 || summary.Updated != 1 {
			t.Errorf("unexpected summary: %+v", summary)
		}
		if mock.UpdateCalls[0].RecordID != "recPEND" {
			t.Errorf("expected recPEND, got %s", mock.UpdateCalls[0].RecordID)
		}
	})

	t.Run("a failed status probe still writes", func(t *testing.T) {
		mock := &tu.MockStore{
			GetFunc: func(ctx context.Context, ref bitable.TableRef, recordID string) (*bitable.Record, error) {
				return nil, errors.New("probe failed")
			},
		}
		engine := NewEngine(mock, testRef, NewFieldMap(nil), nil)

		summary, err := engine.Update(context.Background(), []UpdateRequest{
			{RecordID: "recXYZ", Status: "failed"},
		}, []string{"done"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Updated != 1 {
			t.Errorf("unexpected summary: %+v", summary)
		}
	})

	t.Run("large batches chunk and abort on failure", func(t *testing.T) {
		calls := 0
		mock := &tu.MockStore{
			BatchUpdateFunc: func(ctx context.Context, ref bitable.TableRef, updates []bitable.RecordUpdate) error {
				calls++
				if calls == 2 {
					return errors.New("quota exceeded")
				}
				return nil
			},
		}
		engine := NewEngine(mock, testRef, NewFieldMap(nil), nil)

		requests := make([]UpdateRequest, 1100)
		for i := range requests {
			requests[i] = UpdateRequest{RecordID: fmt.Sprintf("rec-%d", i), Status: "done"}
		}
		summary, err := engine.Update(context.Background(), requests, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Updated != 500 || summary.Failed != 1 {
			t.Errorf("unexpected summary: %+v", summary)
		}
		if calls != 2 {
			t.Errorf("expected the third chunk to be skipped, got %d calls", calls)
		}
	})

	t.Run("empty updates land in errors", func(t *testing.T) {
		mock := &tu.MockStore{}
		engine := NewEngine(mock, testRef, NewFieldMap(nil), nil)

		summary, err := engine.Update(context.Background(), []UpdateRequest{
			{RecordID: "recXYZ"},
		}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Failed != 1 || summary.Errors[0] != "update: no fields to update" {
			t.Errorf("unexpected summary: %+v", summary)
		}
	})
}

func TestLoadUpdateRequests(t *testing.T) {
	t.Run("no path yields the flag defaults", func(t *testing.T) {
		reqs, err := LoadUpdateRequests("", UpdateRequest{RecordID: "recXYZ", Status: "done"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(reqs) != 1 || reqs[0].RecordID != "recXYZ" {
			t.Errorf("unexpected requests: %v", reqs)
		}
	})

	t.Run("items merge over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "updates.jsonl")
		raw := "{\"task_id\":7,\"status\":\"done\"}\n{\"record_id\":\"recB\"}\n"
		if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
			t.Fatal(err)
		}

		reqs, err := LoadUpdateRequests(path, UpdateRequest{Status: "failed"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(reqs) != 2 {
			t.Fatalf("expected 2 requests, got %d", len(reqs))
		}
		if reqs[0].TaskID != float64(7) || reqs[0].Status != "done" {
			t.Errorf("unexpected first request: %+v", reqs[0])
		}
		if reqs[1].RecordID != "recB" || reqs[1].Status != "failed" {
			t.Errorf("unexpected second request: %+v", reqs[1])
		}
	})
}
