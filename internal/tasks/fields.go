package tasks

import "github.com/desertthunder/bitsync/internal/shared"

// Logical task field names. Physical column names may differ per deployment;
// [FieldMap] carries the mapping.
const (
	FieldTaskID           = "TaskID"
	FieldBizTaskID        = "BizTaskID"
	FieldParentTaskID     = "ParentTaskID"
	FieldApp              = "App"
	FieldScene            = "Scene"
	FieldParams           = "Params"
	FieldItemID           = "ItemID"
	FieldBookID           = "BookID"
	FieldURL              = "URL"
	FieldUserID           = "UserID"
	FieldUserName         = "UserName"
	FieldDate             = "Date"
	FieldStatus           = "Status"
	FieldLogs             = "Logs"
	FieldLastScreenShot   = "LastScreenShot"
	FieldGroupID          = "GroupID"
	FieldDeviceSerial     = "DeviceSerial"
	FieldDispatchedDevice = "DispatchedDevice"
	FieldDispatchedAt     = "DispatchedAt"
	FieldStartAt          = "StartAt"
	FieldEndAt            = "EndAt"
	FieldElapsedSeconds   = "ElapsedSeconds"
	FieldItemsCollected   = "ItemsCollected"
	FieldExtra            = "Extra"
	FieldRetryCount       = "RetryCount"
)

// fieldEnvMap maps override environment variables to logical field names.
// The variable names are a compatibility contract with existing deployments.
var fieldEnvMap = map[string]string{
	"TASK_FIELD_TASKID":            FieldTaskID,
	"TASK_FIELD_BIZ_TASK_ID":       FieldBizTaskID,
	"TASK_FIELD_PARENT_TASK_ID":    FieldParentTaskID,
	"TASK_FIELD_APP":               FieldApp,
	"TASK_FIELD_SCENE":             FieldScene,
	"TASK_FIELD_PARAMS":            FieldParams,
	"TASK_FIELD_ITEMID":            FieldItemID,
	"TASK_FIELD_BOOKID":            FieldBookID,
	"TASK_FIELD_URL":               FieldURL,
	"TASK_FIELD_USERID":            FieldUserID,
	"TASK_FIELD_USERNAME":          FieldUserName,
	"TASK_FIELD_DATE":              FieldDate,
	"TASK_FIELD_STATUS":            FieldStatus,
	"TASK_FIELD_LOGS":              FieldLogs,
	"TASK_FIELD_LAST_SCREEN_SHOT":  FieldLastScreenShot,
	"TASK_FIELD_GROUPID":           FieldGroupID,
	"TASK_FIELD_DEVICE_SERIAL":     FieldDeviceSerial,
	"TASK_FIELD_DISPATCHED_DEVICE": FieldDispatchedDevice,
	"TASK_FIELD_DISPATCHED_AT":     FieldDispatchedAt,
	"TASK_FIELD_START_AT":          FieldStartAt,
	"TASK_FIELD_END_AT":            FieldEndAt,
	"TASK_FIELD_ELAPSED_SECONDS":   FieldElapsedSeconds,
	"TASK_FIELD_ITEMS_COLLECTED":   FieldItemsCollected,
	"TASK_FIELD_EXTRA":             FieldExtra,
	"TASK_FIELD_RETRYCOUNT":        FieldRetryCount,
}

// FieldMap maps logical task field names to physical column names. Built
// once per run, read-only afterward.
type FieldMap map[string]string

// NewFieldMap builds the field mapping: identity defaults, then config file
// overrides, then TASK_FIELD_* environment overrides (env wins).
func NewFieldMap(overrides map[string]string) FieldMap {
	fields := FieldMap{}
	for _, logical := range fieldEnvMap {
		fields[logical] = logical
	}
	for logical, column := range overrides {
		if _, known := fields[logical]; known && column != "" {
			fields[logical] = column
		}
	}
	for envName, logical := range fieldEnvMap {
		if column := shared.Env(envName, ""); column != "" {
			fields[logical] = column
		}
	}
	return fields
}

// Column returns the physical column for a logical field, or "" when the
// field is unknown.
func (m FieldMap) Column(logical string) string {
	return m[logical]
}

// Columns returns the set of mapped physical column names.
func (m FieldMap) Columns() map[string]bool {
	out := make(map[string]bool, len(m))
	for _, column := range m {
		if column != "" {
			out[column] = true
		}
	}
	return out
}
