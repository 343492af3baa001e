package tasks

import "strings"

// appGroupLabels maps app package names to the labels used when synthesizing
// group ids. Unlisted apps use the raw package name.
var appGroupLabels = map[string]string{
	"com.smile.gifmaker": "快手",
}

// CreateRequest carries one task-creation payload. String fields hold
// ready-to-write values; the any-typed fields accept the number-or-string
// shapes the coercion helpers understand.
//
// Normalized once by the input layer; never mutated after.
type CreateRequest struct {
	TaskID           any            `json:"task_id,omitempty"`
	BizTaskID        string         `json:"biz_task_id,omitempty"`
	ParentTaskID     string         `json:"parent_task_id,omitempty"`
	RecordID         string         `json:"record_id,omitempty"`
	App              string         `json:"app,omitempty"`
	Scene            string         `json:"scene,omitempty"`
	Params           string         `json:"params,omitempty"`
	ItemID           string         `json:"item_id,omitempty"`
	BookID           string         `json:"book_id,omitempty"`
	URL              string         `json:"url,omitempty"`
	UserID           string         `json:"user_id,omitempty"`
	UserName         string         `json:"user_name,omitempty"`
	Date             any            `json:"date,omitempty"`
	Status           string         `json:"status,omitempty"`
	DeviceSerial     string         `json:"device_serial,omitempty"`
	DispatchedDevice string         `json:"dispatched_device,omitempty"`
	DispatchedAt     any            `json:"dispatched_at,omitempty"`
	StartAt          any            `json:"start_at,omitempty"`
	CompletedAt      any            `json:"completed_at,omitempty"`
	EndAt            any            `json:"end_at,omitempty"`
	ElapsedSeconds   any            `json:"elapsed_seconds,omitempty"`
	ItemsCollected   any            `json:"items_collected,omitempty"`
	Logs             string         `json:"logs,omitempty"`
	RetryCount       any            `json:"retry_count,omitempty"`
	LastScreenshot   string         `json:"last_screenshot,omitempty"`
	GroupID          string         `json:"group_id,omitempty"`
	Extra            any            `json:"extra,omitempty"`
	ForceExtra       bool           `json:"force_extra,omitempty"`
	Fields           map[string]any `json:"fields,omitempty"`
}

// BuildCreateFields derives the physical fields map for one creation request.
//
// A column is emitted only when it is mapped and the source value is
// non-empty or meaningfully derived. Derivations, each independent:
// group id synthesis ({app label}_{book id}_{user id} when all three are set
// and no group id was supplied), date coercion (failed coercions are omitted,
// not defaulted), dispatched device falling back to the device serial, start
// falling back to dispatch time, completion time overriding end time, and
// elapsed seconds computed from the start/end pair when absent. The request's
// Fields override map is merged last and wins.
func BuildCreateFields(mapping FieldMap, req *CreateRequest) map[string]any {
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

	put(FieldBizTaskID, req.BizTaskID)
	put(FieldParentTaskID, req.ParentTaskID)
	put(FieldApp, req.App)
	put(FieldScene, req.Scene)
	put(FieldParams, req.Params)
	put(FieldItemID, req.ItemID)
	put(FieldBookID, req.BookID)
	put(FieldURL, req.URL)
	put(FieldUserID, req.UserID)
	put(FieldUserName, req.UserName)
	put(FieldStatus, req.Status)
	put(FieldLogs, req.Logs)
	put(FieldLastScreenShot, req.LastScreenshot)
	put(FieldGroupID, req.GroupID)

	app := strings.TrimSpace(req.App)
	bookID := strings.TrimSpace(req.BookID)
	userID := strings.TrimSpace(req.UserID)
	if strings.TrimSpace(req.GroupID) == "" && app != "" && bookID != "" && userID != "" {
		if column := mapping.Column(FieldGroupID); column != "" {
			label, ok := appGroupLabels[app]
			if !ok {
				label = app
			}
			fields[column] = label + "_" + bookID + "_" + userID
		}
	}

	if req.Date != nil {
		if payload, ok := CoerceDatePayload(req.Date); ok {
			if column := mapping.Column(FieldDate); column != "" {
				fields[column] = payload
			}
		}
	}

	deviceSerial := strings.TrimSpace(req.DeviceSerial)
	put(FieldDeviceSerial, deviceSerial)

	dispatchedDevice := strings.TrimSpace(req.DispatchedDevice)
	if dispatchedDevice == "" {
		dispatchedDevice = deviceSerial
	}
	put(FieldDispatchedDevice, dispatchedDevice)

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
		payload := NormalizeExtra(req.Extra)
		// ForceExtra lets a caller persist an empty payload on purpose, e.g.
		// when the CDN-URL shortcut replaced the extra entirely.
		if payload != "" || req.ForceExtra {
			fields[column] = payload
		}
	}

	for column, value := range req.Fields {
		if column != "" && value != nil {
			fields[column] = value
		}
	}

	return fields
}
