package bitable

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const (
	// DefaultPageSize is used when the caller does not supply a positive size.
	DefaultPageSize = 200
	// MaxPageSize is the store's hard cap on page_size.
	MaxPageSize = 500
)

// Record is one row returned by a record search.
type Record struct {
	RecordID string         `json:"record_id"`
	Fields   map[string]any `json:"fields"`
}

// PageInfo describes why a paginated scan stopped and where it can resume.
type PageInfo struct {
	HasMore       bool   `json:"has_more"`
	NextPageToken string `json:"next_page_token"`
	Pages         int    `json:"pages"`
}

// SearchOpts bound a paginated record search.
//
// Limit caps the number of accumulated rows (0 = no cap); MaxPages caps the
// number of search calls (0 = no cap). ViewID and Filter, when present, ride
// in the request body.
type SearchOpts struct {
	PageSize int
	Limit    int
	MaxPages int
	ViewID   string
	Filter   *Filter
	// PageToken resumes a previous scan from its remaining cursor.
	PageToken string
}

// ClampPageSize clamps size into (0, MaxPageSize], resetting non-positive
// input to the default.
func ClampPageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

type searchResponse struct {
	apiEnvelope
	Data struct {
		Items     []Record `json:"items"`
		HasMore   bool     `json:"has_more"`
		PageToken string   `json:"page_token"`
	} `json:"data"`
}

type searchBody struct {
	ViewID string  `json:"view_id,omitempty"`
	Filter *Filter `json:"filter,omitempty"`
}

// SearchRecords drives cursor-paginated search calls against ref's table,
// accumulating rows under the opts bounds.
//
// Termination, first match wins: a positive Limit reached (rows truncated to
// exactly Limit), a positive MaxPages reached, or the store reporting no more
// rows / an empty cursor. The returned PageInfo.HasMore reflects whether a
// next cursor remained at stop time; the cursor, not the store's has_more
// flag, is authoritative for resumability.
func (c *Client) SearchRecords(ctx context.Context, ref TableRef, opts SearchOpts) ([]Record, PageInfo, error) {
	pageSize := ClampPageSize(opts.PageSize)
	if opts.Limit > 0 && opts.Limit < pageSize {
		pageSize = opts.Limit
	}

	items := []Record{}
	pageToken := strings.TrimSpace(opts.PageToken)
	pages := 0

	for {
		query := url.Values{}
		query.Set("page_size", fmt.Sprintf("%d", pageSize))
		if pageToken != "" {
			query.Set("page_token", pageToken)
		}

		endpoint := fmt.Sprintf("/open-apis/bitable/v1/apps/%s/tables/%s/records/search?%s",
			ref.AppToken, ref.TableID, query.Encode())

		var body *searchBody
		if opts.ViewID != "" || opts.Filter != nil {
			body = &searchBody{ViewID: opts.ViewID, Filter: opts.Filter}
		}

		var resp searchResponse
		// A typed nil inside the any parameter would serialize as "null";
		// pass an untyped nil when there is no body.
		var payload any
		if body != nil {
			payload = body
		}
		if err := c.requestJSON(ctx, "POST", endpoint, payload, &resp); err != nil {
			return nil, PageInfo{}, err
		}
		if resp.Code != 0 {
			return nil, PageInfo{}, &RemoteError{Op: "search records", Code: resp.Code, Msg: resp.Msg}
		}

		items = append(items, resp.Data.Items...)
		pages++

		hasMore := resp.Data.HasMore
		pageToken = strings.TrimSpace(resp.Data.PageToken)

		if opts.Limit > 0 && len(items) >= opts.Limit {
			items = items[:opts.Limit]
			break
		}
		if opts.MaxPages > 0 && pages >= opts.MaxPages {
			break
		}
		if !hasMore || pageToken == "" {
			break
		}
	}

	return items, PageInfo{HasMore: pageToken != "", NextPageToken: pageToken, Pages: pages}, nil
}
