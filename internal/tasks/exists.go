package tasks

import (
	"context"
	"strings"

	"github.com/desertthunder/bitsync/internal/bitable"
)

// MaxFilterValues caps how many OR-conditions ride in one existence lookup.
const MaxFilterValues = 50

// skipFieldAliases resolves the spellings accepted by --skip-existing into
// logical field names. RecordID is special-cased: it matches by direct row
// lookup instead of a field-value search.
var skipFieldAliases = map[string]string{
	"task_id":     FieldTaskID,
	"taskid":      FieldTaskID,
	"biz_task_id": FieldBizTaskID,
	"biztaskid":   FieldBizTaskID,
	"record_id":   "RecordID",
	"recordid":    "RecordID",
	"book_id":     FieldBookID,
	"bookid":      FieldBookID,
	"user_id":     FieldUserID,
	"userid":      FieldUserID,
	"app":         FieldApp,
	"scene":       FieldScene,
}

// NormalizeSkipFields parses a comma-separated skip-existing list into
// deduplicated logical field names.
func NormalizeSkipFields(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	resolved := []string{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if alias, ok := skipFieldAliases[strings.ToLower(part)]; ok {
			part = alias
		}
		resolved = append(resolved, part)
	}

	seen := map[string]bool{}
	uniq := []string{}
	for _, name := range resolved {
		if !seen[name] {
			seen[name] = true
			uniq = append(uniq, name)
		}
	}
	return uniq
}

// NormalizeSkipStatuses parses a comma-separated skip-status list. Statuses
// compare against raw column values, so no alias resolution applies.
func NormalizeSkipStatuses(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	statuses := []string{}
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		statuses = append(statuses, part)
	}
	return statuses
}

// skipFieldValue extracts the comparison value a skip predicate uses from a
// creation request.
func skipFieldValue(req *CreateRequest, fieldName string) string {
	switch fieldName {
	case FieldTaskID:
		if id, ok := CoerceInt(req.TaskID); ok && id != 0 {
			return bitable.ValueString(id)
		}
		return ""
	case FieldBizTaskID:
		return strings.TrimSpace(req.BizTaskID)
	case "RecordID":
		return strings.TrimSpace(req.RecordID)
	case FieldBookID:
		return strings.TrimSpace(req.BookID)
	case FieldUserID:
		return strings.TrimSpace(req.UserID)
	case FieldApp:
		return strings.TrimSpace(req.App)
	case FieldScene:
		return strings.TrimSpace(req.Scene)
	default:
		if req.Fields != nil {
			return bitable.ValueString(req.Fields[fieldName])
		}
		return ""
	}
}

func chunkStrings(values []string, size int) [][]string {
	if size <= 0 {
		return [][]string{values}
	}
	chunks := [][]string{}
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		chunks = append(chunks, values[start:end])
	}
	return chunks
}

// searchExistingByField looks up which of the candidate values already exist
// in the given physical column, in [MaxFilterValues]-sized OR-filter batches
// of one search call each. Values are deduplicated first-seen before
// batching. The first row seen for a value wins; values with no match are
// absent from the result.
func (e *Engine) searchExistingByField(ctx context.Context, column string, values []string) (map[string]bitable.Record, error) {
	existing := map[string]bitable.Record{}
	if len(values) == 0 {
		return existing, nil
	}

	seen := map[string]bool{}
	uniq := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		uniq = append(uniq, value)
	}

	for _, batch := range chunkStrings(uniq, MaxFilterValues) {
		filter := bitable.BuildValueFilter(column, batch)
		if filter == nil {
			continue
		}

		pageSize := len(batch)
		if pageSize < 1 {
			pageSize = 1
		}
		records, _, err := e.store.SearchRecords(ctx, e.ref, bitable.SearchOpts{
			PageSize: pageSize,
			MaxPages: 1,
			Filter:   filter,
		})
		if err != nil {
			return nil, err
		}

		for _, record := range records {
			recordID := strings.TrimSpace(record.RecordID)
			value := FieldString(record.Fields, column)
			if recordID == "" || value == "" {
				continue
			}
			if _, dup := existing[value]; !dup {
				existing[value] = record
			}
		}
	}
	return existing, nil
}

// ResolveExistingByField maps candidate values to the record ids already
// holding them in the given physical column.
func (e *Engine) ResolveExistingByField(ctx context.Context, column string, values []string) (map[string]string, error) {
	records, err := e.searchExistingByField(ctx, column, values)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(records))
	for value, record := range records {
		out[value] = record.RecordID
	}
	return out, nil
}
