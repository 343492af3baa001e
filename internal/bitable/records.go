package bitable

import (
	"context"
	"fmt"
	"strings"
)

// MaxBatchSize is the store's limit on rows per batch create/update call.
const MaxBatchSize = 500

// RecordFields is the physical column payload for one row write.
type RecordFields struct {
	Fields map[string]any `json:"fields"`
}

// RecordUpdate addresses an existing row for a batch update.
type RecordUpdate struct {
	RecordID string         `json:"record_id"`
	Fields   map[string]any `json:"fields"`
}

func (c *Client) recordsEndpoint(ref TableRef) string {
	return fmt.Sprintf("/open-apis/bitable/v1/apps/%s/tables/%s/records", ref.AppToken, ref.TableID)
}

// CreateRecord creates a single row.
func (c *Client) CreateRecord(ctx context.Context, ref TableRef, fields map[string]any) error {
	var resp apiEnvelope
	payload := RecordFields{Fields: fields}
	if err := c.requestJSON(ctx, "POST", c.recordsEndpoint(ref), payload, &resp); err != nil {
		return err
	}
	if resp.Code != 0 {
		return &RemoteError{Op: "create record", Code: resp.Code, Msg: resp.Msg}
	}
	return nil
}

// BatchCreateRecords creates up to [MaxBatchSize] rows in one call. Chunking
// to the limit is the caller's responsibility.
func (c *Client) BatchCreateRecords(ctx context.Context, ref TableRef, records []RecordFields) error {
	var resp apiEnvelope
	payload := map[string]any{"records": records}
	if err := c.requestJSON(ctx, "POST", c.recordsEndpoint(ref)+"/batch_create", payload, &resp); err != nil {
		return err
	}
	if resp.Code != 0 {
		return &RemoteError{Op: "batch create", Code: resp.Code, Msg: resp.Msg}
	}
	return nil
}

// UpdateRecord updates a single row by record id.
func (c *Client) UpdateRecord(ctx context.Context, ref TableRef, recordID string, fields map[string]any) error {
	var resp apiEnvelope
	payload := RecordFields{Fields: fields}
	endpoint := c.recordsEndpoint(ref) + "/" + recordID
	if err := c.requestJSON(ctx, "PUT", endpoint, payload, &resp); err != nil {
		return err
	}
	if resp.Code != 0 {
		return &RemoteError{Op: "update record", Code: resp.Code, Msg: resp.Msg}
	}
	return nil
}

// BatchUpdateRecords updates up to [MaxBatchSize] rows in one call.
func (c *Client) BatchUpdateRecords(ctx context.Context, ref TableRef, updates []RecordUpdate) error {
	var resp apiEnvelope
	payload := map[string]any{"records": updates}
	if err := c.requestJSON(ctx, "POST", c.recordsEndpoint(ref)+"/batch_update", payload, &resp); err != nil {
		return err
	}
	if resp.Code != 0 {
		return &RemoteError{Op: "batch update", Code: resp.Code, Msg: resp.Msg}
	}
	return nil
}

type recordResponse struct {
	apiEnvelope
	Data struct {
		Record Record `json:"record"`
	} `json:"data"`
}

// GetRecord fetches a single row by id.
func (c *Client) GetRecord(ctx context.Context, ref TableRef, recordID string) (*Record, error) {
	var resp recordResponse
	endpoint := c.recordsEndpoint(ref) + "/" + strings.TrimSpace(recordID)
	if err := c.requestJSON(ctx, "GET", endpoint, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, &RemoteError{Op: "get record", Code: resp.Code, Msg: resp.Msg}
	}
	record := resp.Data.Record
	if record.RecordID == "" {
		record.RecordID = strings.TrimSpace(recordID)
	}
	return &record, nil
}

// RecordExists probes a row by id. Any transport or decoding failure reads
// as "does not exist": the probe only guards against duplicate writes, and a
// false negative risks an extra row, never data loss.
func (c *Client) RecordExists(ctx context.Context, ref TableRef, recordID string) bool {
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return false
	}

	var resp apiEnvelope
	endpoint := c.recordsEndpoint(ref) + "/" + recordID
	if err := c.requestJSON(ctx, "GET", endpoint, nil, &resp); err != nil {
		return false
	}
	return resp.Code == 0
}
