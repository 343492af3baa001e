package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/bitsync/internal/bitable"
)

// UpdateRequest carries one task-update payload. Targets are addressed by
// record id directly, else located by TaskID, else by BizTaskID.
type UpdateRequest struct {
	TaskID         any    `json:"task_id,omitempty"`
	BizTaskID      string `json:"biz_task_id,omitempty"`
	RecordID       string `json:"record_id,omitempty"`
	Status         string `json:"status,omitempty"`
	Date           any    `json:"date,omitempty"`
	DeviceSerial   string `json:"device_serial,omitempty"`
	DispatchedAt   any    `json:"dispatched_at,omitempty"`
	StartAt        any    `json:"start_at,omitempty"`
	CompletedAt    any    `json:"completed_at,omitempty"`
	EndAt          any    `json:"end_at,omitempty"`
	ElapsedSeconds any    `json:"elapsed_seconds,omitempty"`
	ItemsCollected any    `json:"items_collected,omitempty"`
	Logs           string `json:"logs,omitempty"`
	RetryCount     any    `json:"retry_count,omitempty"`
	Extra          any    `json:"extra,omitempty"`
}

// UpdateSummary is the update-path output payload.
type UpdateSummary struct {
	Updated        int      `json:"updated"`
	Requested      int      `json:"requested"`
	Skipped        int      `json:"skipped"`
	Failed         int      `json:"failed"`
	Errors         []string `json:"errors"`
	ElapsedSeconds float64  `json:"elapsed_seconds"`
}

// BuildUpdateFields derives the physical fields map for one update request.
// The timestamp fallback chain matches creation: start falls back to
// dispatch time, completion time overrides end time, elapsed is derived from
// the start/end pair when absent.
func BuildUpdateFields(mapping FieldMap, req *UpdateRequest) map[string]any {
	fields := map[string]any{}

	put := func(logical, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		if column := mapping.Column(logical); column != "" {
			fields[column] = value
		}
	}

	put(FieldStatus, req.Status)
	put(FieldLogs, req.Logs)

	if req.Date != nil {
		if payload, ok := CoerceDatePayload(req.Date); ok {
			if column := mapping.Column(FieldDate); column != "" {
				fields[column] = payload
			}
		}
	}

	deviceSerial := strings.TrimSpace(req.DeviceSerial)
	put(FieldDeviceSerial, deviceSerial)
	put(FieldDispatchedDevice, deviceSerial)

	dispatchedMs, hasDispatched := CoerceMillis(req.DispatchedAt)
	startMs, hasStart := CoerceMillis(req.StartAt)
	if hasDispatched {
		if column := mapping.Column(FieldDispatchedAt); column != "" {
			fields[column] = dispatchedMs
		}
	}
	if !hasStart && hasDispatched {
		startMs, hasStart = dispatchedMs, true
	}
	if hasStart {
		if column := mapping.Column(FieldStartAt); column != "" {
			fields[column] = startMs
		}
	}

	endMs, hasEnd := CoerceMillis(req.EndAt)
	if completedMs, ok := CoerceMillis(req.CompletedAt); ok {
		endMs, hasEnd = completedMs, true
	}
	if hasEnd {
		if column := mapping.Column(FieldEndAt); column != "" {
			fields[column] = endMs
		}
	}

	elapsed, hasElapsed := CoerceInt(req.ElapsedSeconds)
	if !hasElapsed && hasStart && hasEnd {
		elapsed = int((endMs - startMs) / 1000)
		if elapsed < 0 {
			elapsed = 0
		}
		hasElapsed = true
	}
	if hasElapsed {
		if column := mapping.Column(FieldElapsedSeconds); column != "" {
			fields[column] = elapsed
		}
	}

	if n, ok := CoerceInt(req.ItemsCollected); ok {
		if column := mapping.Column(FieldItemsCollected); column != "" {
			fields[column] = n
		}
	}
	if n, ok := CoerceInt(req.RetryCount); ok {
		if column := mapping.Column(FieldRetryCount); column != "" {
			fields[column] = n
		}
	}

	if column := mapping.Column(FieldExtra); column != "" && req.Extra != nil {
		if payload := NormalizeExtra(req.Extra); payload != "" {
			fields[column] = payload
		}
	}

	return fields
}

// Update locates each request's target row and writes the derived update
// fields: a single row via the one-record call, two or more chunked to the
// store's batch limit. Rows whose current status is in skipStatuses are
// skipped. Chunk failure semantics match [Engine.Create].
func (e *Engine) Update(ctx context.Context, requests []UpdateRequest, skipStatuses []string) (*UpdateSummary, error) {
	statusColumn := e.fields.Column(FieldStatus)
	skip := map[string]bool{}
	for _, status := range skipStatuses {
		status = strings.TrimSpace(status)
		if status != "" {
			skip[status] = true
		}
	}

	taskIDValues := []string{}
	bizIDValues := []string{}
	for i := range requests {
		req := &requests[i]
		if strings.TrimSpace(req.RecordID) != "" {
			continue
		}
		if id, ok := CoerceInt(req.TaskID); ok && id != 0 {
			taskIDValues = append(taskIDValues, bitable.ValueString(id))
			continue
		}
		if strings.TrimSpace(req.BizTaskID) != "" {
			bizIDValues = append(bizIDValues, strings.TrimSpace(req.BizTaskID))
		}
	}

	byTaskID, err := e.searchExistingByField(ctx, e.fields.Column(FieldTaskID), taskIDValues)
	if err != nil {
		return nil, err
	}
	byBizID, err := e.searchExistingByField(ctx, e.fields.Column(FieldBizTaskID), bizIDValues)
	if err != nil {
		return nil, err
	}

	summary := &UpdateSummary{Errors: []string{}}
	updates := []bitable.RecordUpdate{}

	for i := range requests {
		req := &requests[i]

		recordID := strings.TrimSpace(req.RecordID)
		var current *bitable.Record
		switch {
		case recordID != "":
			if len(skip) > 0 {
				// Probe failures fall through to the write; the probe only
				// exists to honor skip-status, and a missed skip risks an
				// extra write, not data loss.
				if record, err := e.store.GetRecord(ctx, e.ref, recordID); err == nil {
					current = record
				}
			}
		default:
			if id, ok := CoerceInt(req.TaskID); ok && id != 0 {
				if record, found := byTaskID[bitable.ValueString(id)]; found {
					current = &record
					recordID = record.RecordID
				}
			} else if biz := strings.TrimSpace(req.BizTaskID); biz != "" {
				if record, found := byBizID[biz]; found {
					current = &record
					recordID = record.RecordID
				}
			}
		}

		if recordID == "" {
			summary.Errors = append(summary.Errors, fmt.Sprintf("update: no matching record for task_id=%v biz_task_id=%s", req.TaskID, req.BizTaskID))
			continue
		}

		if len(skip) > 0 && current != nil && skip[FieldString(current.Fields, statusColumn)] {
			summary.Skipped++
			continue
		}

		fields := BuildUpdateFields(e.fields, req)
		if len(fields) == 0 {
			summary.Errors = append(summary.Errors, "update: no fields to update")
			continue
		}
		updates = append(updates, bitable.RecordUpdate{RecordID: recordID, Fields: fields})
	}

	summary.Requested = len(updates)

	start := time.Now()
	if len(updates) == 1 {
		if err := e.store.UpdateRecord(ctx, e.ref, updates[0].RecordID, updates[0].Fields); err != nil {
			summary.Errors = append(summary.Errors, err.Error())
		} else {
			summary.Updated = 1
		}
	} else {
		for offset := 0; offset < len(updates); offset += bitable.MaxBatchSize {
			end := offset + bitable.MaxBatchSize
			if end > len(updates) {
				end = len(updates)
			}
			chunk := updates[offset:end]
			if err := e.store.BatchUpdateRecords(ctx, e.ref, chunk); err != nil {
				summary.Errors = append(summary.Errors, err.Error())
				break
			}
			summary.Updated += len(chunk)
		}
	}

	summary.Failed = len(summary.Errors)
	summary.ElapsedSeconds = roundSeconds(time.Since(start))

	e.logger.Debug("update complete",
		"updated", summary.Updated, "skipped", summary.Skipped, "failed", summary.Failed)

	return summary, nil
}

// LoadUpdateRequests mirrors [LoadCreateRequests] for the update path.
func LoadUpdateRequests(path string, defaults UpdateRequest) ([]UpdateRequest, error) {
	if path == "" {
		return []UpdateRequest{defaults}, nil
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

	requests := make([]UpdateRequest, 0, len(items))
	for _, item := range items {
		requests = append(requests, UpdateRequest{
			TaskID:         firstPresent(item, "task_id", "taskID", "TaskID"),
			BizTaskID:      pickString(item, "biz_task_id", "", "bizTaskId", "BizTaskID"),
			RecordID:       pickString(item, "record_id", "", "recordId", "RecordID"),
			Status:         pickString(item, "status", defaults.Status, "Status"),
			Date:           pickAny(item, "date", defaults.Date, "Date"),
			DeviceSerial:   pickString(item, "device_serial", defaults.DeviceSerial, "DeviceSerial"),
			DispatchedAt:   pickAny(item, "dispatched_at", defaults.DispatchedAt, "DispatchedAt"),
			StartAt:        pickAny(item, "start_at", defaults.StartAt, "StartAt"),
			CompletedAt:    pickAny(item, "completed_at", defaults.CompletedAt),
			EndAt:          pickAny(item, "end_at", defaults.EndAt, "EndAt"),
			ElapsedSeconds: pickAny(item, "elapsed_seconds", defaults.ElapsedSeconds, "ElapsedSeconds"),
			ItemsCollected: pickAny(item, "items_collected", defaults.ItemsCollected, "ItemsCollected"),
			Logs:           pickString(item, "logs", defaults.Logs, "Logs"),
			RetryCount:     pickAny(item, "retry_count", defaults.RetryCount, "RetryCount"),
			Extra:          pickAny(item, "extra", defaults.Extra),
		})
	}
	return requests, nil
}
