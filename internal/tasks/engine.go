package tasks

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/bitsync/internal/bitable"
	"github.com/desertthunder/bitsync/internal/shared"
)

// Store is the remote table surface the engine drives. *bitable.Client
// satisfies it; tests substitute doubles.
type Store interface {
	SearchRecords(ctx context.Context, ref bitable.TableRef, opts bitable.SearchOpts) ([]bitable.Record, bitable.PageInfo, error)
	CreateRecord(ctx context.Context, ref bitable.TableRef, fields map[string]any) error
	BatchCreateRecords(ctx context.Context, ref bitable.TableRef, records []bitable.RecordFields) error
	UpdateRecord(ctx context.Context, ref bitable.TableRef, recordID string, fields map[string]any) error
	BatchUpdateRecords(ctx context.Context, ref bitable.TableRef, updates []bitable.RecordUpdate) error
	GetRecord(ctx context.Context, ref bitable.TableRef, recordID string) (*bitable.Record, error)
	RecordExists(ctx context.Context, ref bitable.TableRef, recordID string) bool
}

// Engine synchronizes tasks with one Bitable table. Strictly sequential:
// pagination, existence batches and create chunks each complete before the
// next begins, because cursor continuation and chunk ordering must stay
// sequential to remain correct.
type Engine struct {
	store  Store
	ref    bitable.TableRef
	fields FieldMap
	logger *log.Logger
}

// NewEngine creates an Engine over a resolved table reference.
func NewEngine(store Store, ref bitable.TableRef, fields FieldMap, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{store: store, ref: ref, fields: fields, logger: logger}
}

// Fields exposes the engine's field mapping.
func (e *Engine) Fields() FieldMap { return e.fields }

// FetchOpts bound one read-path scan.
type FetchOpts struct {
	App        string
	Scene      string
	Status     string
	DatePreset string
	Limit      int
	PageSize   int
	MaxPages   int
	ViewID     string
	IgnoreView bool
	IncludeRaw bool
	PageToken  string
}

// FetchResult is the read-path output payload.
type FetchResult struct {
	Tasks          []Task           `json:"tasks"`
	Count          int              `json:"count"`
	ElapsedSeconds float64          `json:"elapsed_seconds"`
	PageInfo       bitable.PageInfo `json:"page_info"`
}

// BuildSearchFilter conjoins the read-path equality filters. The "Any" date
// preset means unfiltered dates.
func BuildSearchFilter(mapping FieldMap, app, scene, status, datePreset string) *bitable.Filter {
	terms := []bitable.EqualityTerm{
		{Field: mapping.Column(FieldApp), Value: app},
		{Field: mapping.Column(FieldScene), Value: scene},
		{Field: mapping.Column(FieldStatus), Value: status},
	}
	if datePreset != "" && datePreset != "Any" {
		terms = append(terms, bitable.EqualityTerm{Field: mapping.Column(FieldDate), Value: datePreset})
	}
	return bitable.BuildFilter(terms)
}

// Fetch pages through the table and decodes matching rows into tasks.
// Rows failing decode validation are dropped, not errors.
func (e *Engine) Fetch(ctx context.Context, opts FetchOpts) (*FetchResult, error) {
	filter := BuildSearchFilter(e.fields, opts.App, opts.Scene, opts.Status, opts.DatePreset)

	viewID := strings.TrimSpace(opts.ViewID)
	if viewID == "" {
		viewID = e.ref.ViewID
	}
	if opts.IgnoreView {
		viewID = ""
	}

	start := time.Now()
	records, pageInfo, err := e.store.SearchRecords(ctx, e.ref, bitable.SearchOpts{
		PageSize:  opts.PageSize,
		Limit:     opts.Limit,
		MaxPages:  opts.MaxPages,
		ViewID:    viewID,
		Filter:    filter,
		PageToken: opts.PageToken,
	})
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	tasks := []Task{}
	for _, record := range records {
		task := DecodeTask(record.Fields, e.fields)
		if task == nil {
			continue
		}
		task.RecordID = strings.TrimSpace(record.RecordID)
		if opts.IncludeRaw {
			task.RawFields = record.Fields
		}
		tasks = append(tasks, *task)
	}

	e.logger.Debug("fetch complete", "rows", len(records), "tasks", len(tasks), "pages", pageInfo.Pages)

	return &FetchResult{
		Tasks:          tasks,
		Count:          len(tasks),
		ElapsedSeconds: roundSeconds(elapsed),
		PageInfo:       pageInfo,
	}, nil
}

// CreateSummary is the write-path output payload.
type CreateSummary struct {
	Created        int      `json:"created"`
	Requested      int      `json:"requested"`
	Skipped        int      `json:"skipped"`
	Failed         int      `json:"failed"`
	Errors         []string `json:"errors"`
	ElapsedSeconds float64  `json:"elapsed_seconds"`
}

// Create partitions the requests into skip/create using the skip-existing
// predicates (all predicates must match an existing record for an item to be
// skipped), then writes the survivors: a single row via the one-record call,
// two or more chunked to the store's batch limit.
//
// A failing chunk aborts the remaining chunks; chunks already submitted are
// not rolled back, so Created reflects only completed chunks. Chunk failures
// land in Errors rather than the error return, which is reserved for faults
// before any write was attempted.
func (e *Engine) Create(ctx context.Context, requests []CreateRequest, skipFields []string) (*CreateSummary, error) {
	existingByField := map[string]map[string]string{}
	existingRecordIDs := map[string]bool{}

	if len(skipFields) > 0 {
		candidates := map[string][]string{}
		for i := range requests {
			for _, fieldName := range skipFields {
				value := skipFieldValue(&requests[i], fieldName)
				if value == "" {
					continue
				}
				if fieldName == "RecordID" {
					if !existingRecordIDs[value] && e.store.RecordExists(ctx, e.ref, value) {
						existingRecordIDs[value] = true
					}
					continue
				}
				candidates[fieldName] = append(candidates[fieldName], value)
			}
		}

		for fieldName, values := range candidates {
			column := e.fields.Column(fieldName)
			if column == "" {
				column = fieldName
			}
			existing, err := e.ResolveExistingByField(ctx, column, values)
			if err != nil {
				return nil, err
			}
			existingByField[fieldName] = existing
		}
	}

	summary := &CreateSummary{Errors: []string{}}
	records := []bitable.RecordFields{}

	for i := range requests {
		req := &requests[i]
		if len(skipFields) > 0 && e.matchesAllSkipFields(req, skipFields, existingByField, existingRecordIDs) {
			summary.Skipped++
			continue
		}

		fields := BuildCreateFields(e.fields, req)
		if len(fields) == 0 {
			summary.Errors = append(summary.Errors, "task: no fields to create")
			continue
		}
		records = append(records, bitable.RecordFields{Fields: fields})
	}

	summary.Requested = len(records)

	start := time.Now()
	if len(records) == 1 {
		if err := e.store.CreateRecord(ctx, e.ref, records[0].Fields); err != nil {
			summary.Errors = append(summary.Errors, err.Error())
		} else {
			summary.Created = 1
		}
	} else {
		for offset := 0; offset < len(records); offset += bitable.MaxBatchSize {
			end := offset + bitable.MaxBatchSize
			if end > len(records) {
				end = len(records)
			}
			chunk := records[offset:end]
			if err := e.store.BatchCreateRecords(ctx, e.ref, chunk); err != nil {
				summary.Errors = append(summary.Errors, err.Error())
				break
			}
			summary.Created += len(chunk)
		}
	}

	summary.Failed = len(summary.Errors)
	summary.ElapsedSeconds = roundSeconds(time.Since(start))

	e.logger.Debug("create complete",
		"created", summary.Created, "skipped", summary.Skipped, "failed", summary.Failed)

	return summary, nil
}

// matchesAllSkipFields reports whether every skip predicate finds an existing
// record for the request.
func (e *Engine) matchesAllSkipFields(req *CreateRequest, skipFields []string, existingByField map[string]map[string]string, existingRecordIDs map[string]bool) bool {
	for _, fieldName := range skipFields {
		value := skipFieldValue(req, fieldName)
		if value == "" {
			return false
		}
		if fieldName == "RecordID" {
			if !existingRecordIDs[value] {
				return false
			}
			continue
		}
		if _, ok := existingByField[fieldName][value]; !ok {
			return false
		}
	}
	return true
}

func roundSeconds(d time.Duration) float64 {
	return float64(d.Milliseconds()) / 1000.0
}
