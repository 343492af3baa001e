// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"

	"github.com/desertthunder/bitsync/internal/bitable"
)

// MockStore is a configurable test double for the engine's remote table
// surface. Each call is recorded; unset handlers succeed with zero values.
type MockStore struct {
	SearchFunc      func(ctx context.Context, ref bitable.TableRef, opts bitable.SearchOpts) ([]bitable.Record, bitable.PageInfo, error)
	CreateFunc      func(ctx context.Context, ref bitable.TableRef, fields map[string]any) error
	BatchCreateFunc func(ctx context.Context, ref bitable.TableRef, records []bitable.RecordFields) error
	UpdateFunc      func(ctx context.Context, ref bitable.TableRef, recordID string, fields map[string]any) error
	BatchUpdateFunc func(ctx context.Context, ref bitable.TableRef, updates []bitable.RecordUpdate) error
	GetFunc         func(ctx context.Context, ref bitable.TableRef, recordID string) (*bitable.Record, error)
	ExistsFunc      func(ctx context.Context, ref bitable.TableRef, recordID string) bool

	SearchCalls      []bitable.SearchOpts
	CreateCalls      []map[string]any
	BatchCreateCalls [][]bitable.RecordFields
	UpdateCalls      []bitable.RecordUpdate
	BatchUpdateCalls [][]bitable.RecordUpdate
	GetCalls         []string
	ExistsCalls      []string
}

func (m *MockStore) SearchRecords(ctx context.Context, ref bitable.TableRef, opts bitable.SearchOpts) ([]bitable.Record, bitable.PageInfo, error) {
	m.SearchCalls = append(m.SearchCalls, opts)
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, ref, opts)
	}
	return []bitable.Record{}, bitable.PageInfo{}, nil
}

func (m *MockStore) CreateRecord(ctx context.Context, ref bitable.TableRef, fields map[string]any) error {
	m.CreateCalls = append(m.CreateCalls, fields)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, ref, fields)
	}
	return nil
}

func (m *MockStore) BatchCreateRecords(ctx context.Context, ref bitable.TableRef, records []bitable.RecordFields) error {
	m.BatchCreateCalls = append(m.BatchCreateCalls, records)
	if m.BatchCreateFunc != nil {
		return m.BatchCreateFunc(ctx, ref, records)
	}
	return nil
}

func (m *MockStore) UpdateRecord(ctx context.Context, ref bitable.TableRef, recordID string, fields map[string]any) error {
	m.UpdateCalls = append(m.UpdateCalls, bitable.RecordUpdate{RecordID: recordID, Fields: fields})
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, ref, recordID, fields)
	}
	return nil
}

func (m *MockStore) BatchUpdateRecords(ctx context.Context, ref bitable.TableRef, updates []bitable.RecordUpdate) error {
	m.BatchUpdateCalls = append(m.BatchUpdateCalls, updates)
	if m.BatchUpdateFunc != nil {
		return m.BatchUpdateFunc(ctx, ref, updates)
	}
	return nil
}

func (m *MockStore) GetRecord(ctx context.Context, ref bitable.TableRef, recordID string) (*bitable.Record, error) {
	m.GetCalls = append(m.GetCalls, recordID)
	if m.GetFunc != nil {
		return m.GetFunc(ctx, ref, recordID)
	}
	return nil, errors.New("record not found")
}

func (m *MockStore) RecordExists(ctx context.Context, ref bitable.TableRef, recordID string) bool {
	m.ExistsCalls = append(m.ExistsCalls, recordID)
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, ref, recordID)
	}
	return false
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}
