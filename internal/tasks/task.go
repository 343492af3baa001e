// package tasks implements the task synchronization engine between local
// producers/consumers and a Bitable task table.
//
// The remote store is the sole source of truth: the engine decodes rows into
// canonical [Task] entities on the read path and derives physical field maps
// from [CreateRequest] / [UpdateRequest] payloads on the write path. All
// operations are sequential; see [Engine].
package tasks

import (
	"strconv"

	"github.com/desertthunder/bitsync/internal/bitable"
)

// Task is the canonical decoded task entity. Constructed only by
// [DecodeTask]; immutable afterward.
type Task struct {
	TaskID           int    `json:"task_id"`
	BizTaskID        string `json:"biz_task_id"`
	ParentTaskID     string `json:"parent_task_id"`
	App              string `json:"app"`
	Scene            string `json:"scene"`
	Params           string `json:"params"`
	ItemID           string `json:"item_id"`
	BookID           string `json:"book_id"`
	URL              string `json:"url"`
	UserID           string `json:"user_id"`
	UserName         string `json:"user_name"`
	Date             string `json:"date"`
	Status           string `json:"status"`
	Extra            string `json:"extra"`
	Logs             string `json:"logs"`
	LastScreenshot   string `json:"last_screenshot"`
	GroupID          string `json:"group_id"`
	DeviceSerial     string `json:"device_serial"`
	DispatchedDevice string `json:"dispatched_device"`
	DispatchedAt     string `json:"dispatched_at"`
	StartAt          string `json:"start_at"`
	EndAt            string `json:"end_at"`
	ElapsedSeconds   string `json:"elapsed_seconds"`
	ItemsCollected   string `json:"items_collected"`
	RetryCount       string `json:"retry_count"`
	RecordID         string `json:"record_id"`
	RawFields        any    `json:"raw_fields,omitempty"`
}

// FieldString normalizes the named column of a raw fields map.
func FieldString(fields map[string]any, name string) string {
	if len(fields) == 0 || name == "" {
		return ""
	}
	return bitable.ValueString(fields[name])
}

// FieldInt normalizes the named column and coerces it to an int, returning 0
// on any parse failure.
func FieldInt(fields map[string]any, name string) int {
	raw := FieldString(fields, name)
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

// DecodeTask maps a raw per-row fields map through the field mapping into a
// [Task]. Returns nil when the row fails validation: the task id must be a
// non-zero integer, and at least one business field (params, item id, book
// id, url, user id, user name) must be populated; a row with only an id is
// not a task.
func DecodeTask(fields map[string]any, mapping FieldMap) *Task {
	if len(fields) == 0 {
		return nil
	}

	taskID := FieldInt(fields, mapping.Column(FieldTaskID))
	if taskID == 0 {
		return nil
	}

	get := func(logical string) string {
		return FieldString(fields, mapping.Column(logical))
	}

	task := &Task{
		TaskID:           taskID,
		BizTaskID:        get(FieldBizTaskID),
		ParentTaskID:     get(FieldParentTaskID),
		App:              get(FieldApp),
		Scene:            get(FieldScene),
		Params:           get(FieldParams),
		ItemID:           get(FieldItemID),
		BookID:           get(FieldBookID),
		URL:              get(FieldURL),
		UserID:           get(FieldUserID),
		UserName:         get(FieldUserName),
		Date:             get(FieldDate),
		Status:           get(FieldStatus),
		Extra:            get(FieldExtra),
		Logs:             get(FieldLogs),
		LastScreenshot:   get(FieldLastScreenShot),
		GroupID:          get(FieldGroupID),
		DeviceSerial:     get(FieldDeviceSerial),
		DispatchedDevice: get(FieldDispatchedDevice),
		DispatchedAt:     get(FieldDispatchedAt),
		StartAt:          get(FieldStartAt),
		EndAt:            get(FieldEndAt),
		ElapsedSeconds:   get(FieldElapsedSeconds),
		ItemsCollected:   get(FieldItemsCollected),
		RetryCount:       get(FieldRetryCount),
	}

	if task.Params == "" && task.ItemID == "" && task.BookID == "" &&
		task.URL == "" && task.UserID == "" && task.UserName == "" {
		return nil
	}
	return task
}
