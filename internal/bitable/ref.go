package bitable

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/bitsync/internal/shared"
)

// TableRef identifies a Bitable table parsed from a share URL.
//
// Exactly one of AppToken/WikiToken may be empty after parsing; a wiki-form
// URL carries a WikiToken that must be resolved into an AppToken before any
// record call. The ref is not mutated after resolution.
type TableRef struct {
	RawURL    string
	AppToken  string
	TableID   string
	ViewID    string
	WikiToken string
}

// firstQueryValue returns the first non-blank value among the given query
// keys, checked in order.
func firstQueryValue(q url.Values, keys ...string) string {
	for _, k := range keys {
		for _, v := range q[k] {
			v = strings.TrimSpace(v)
			if v != "" {
				return v
			}
		}
	}
	return ""
}

// ParseTableURL parses a Bitable share URL into a [TableRef].
//
// Both base form (/base/{app_token}) and wiki form (/wiki/{wiki_token}) are
// accepted; when neither marker appears the last path segment is treated as
// the app token. The table id is required and may be spelled table, tableId
// or table_id in the query; the view id uses the same three spellings.
func ParseTableURL(raw string) (TableRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return TableRef{}, fmt.Errorf("%w: bitable url is empty", shared.ErrInvalidReference)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return TableRef{}, fmt.Errorf("%w: %v", shared.ErrInvalidReference, err)
	}
	if u.Scheme == "" {
		return TableRef{}, fmt.Errorf("%w: bitable url missing scheme", shared.ErrInvalidReference)
	}

	segments := []string{}
	for _, s := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}

	appToken := ""
	wikiToken := ""
	for i := 0; i < len(segments)-1; i++ {
		if segments[i] == "base" {
			appToken = segments[i+1]
			break
		}
		if segments[i] == "wiki" {
			wikiToken = segments[i+1]
		}
	}
	if appToken == "" && wikiToken == "" && len(segments) > 0 {
		appToken = segments[len(segments)-1]
	}

	q := u.Query()
	tableID := firstQueryValue(q, "table", "tableId", "table_id")
	viewID := firstQueryValue(q, "view", "viewId", "view_id")
	if tableID == "" {
		return TableRef{}, fmt.Errorf("%w: missing table_id in bitable url query", shared.ErrInvalidReference)
	}

	return TableRef{
		RawURL:    raw,
		AppToken:  appToken,
		TableID:   tableID,
		ViewID:    viewID,
		WikiToken: wikiToken,
	}, nil
}

type wikiNodeResponse struct {
	apiEnvelope
	Data struct {
		Node struct {
			ObjType  string `json:"obj_type"`
			ObjToken string `json:"obj_token"`
		} `json:"node"`
	} `json:"data"`
}

// ResolveWikiRef fills ref.AppToken by resolving its wiki token through the
// spaces/get_node lookup. Only valid for refs with an empty AppToken and a
// non-empty WikiToken.
func (c *Client) ResolveWikiRef(ctx context.Context, ref *TableRef) error {
	wikiToken := strings.TrimSpace(ref.WikiToken)
	if wikiToken == "" {
		return fmt.Errorf("%w: wiki token is empty", shared.ErrWikiNode)
	}

	endpoint := "/open-apis/wiki/v2/spaces/get_node?token=" + url.QueryEscape(wikiToken)
	var resp wikiNodeResponse
	if err := c.requestJSON(ctx, "GET", endpoint, nil, &resp); err != nil {
		return err
	}
	if resp.Code != 0 {
		return &RemoteError{Op: "wiki node", Code: resp.Code, Msg: resp.Msg}
	}

	if objType := strings.TrimSpace(resp.Data.Node.ObjType); objType != "bitable" {
		return fmt.Errorf("%w: node obj_type is %q, not bitable", shared.ErrWikiNode, objType)
	}
	objToken := strings.TrimSpace(resp.Data.Node.ObjToken)
	if objToken == "" {
		return fmt.Errorf("%w: node obj_token missing", shared.ErrWikiNode)
	}

	ref.AppToken = objToken
	return nil
}
