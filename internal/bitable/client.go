package bitable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/desertthunder/bitsync/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public Feishu open API endpoint.
	DefaultBaseURL = "https://open.feishu.cn"

	defaultTimeout   = 30 * time.Second
	defaultRateLimit = 5.0
)

// apiEnvelope is the common code/msg wrapper on every open-API response.
type apiEnvelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// RemoteError is a non-success application-level response from the store.
type RemoteError struct {
	Op   string
	Code int
	Msg  string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s failed: code=%d msg=%s", e.Op, e.Code, e.Msg)
}

// Client is an authenticated Feishu open-API client.
//
// All calls are synchronous and paced through a shared [rate.Limiter]; the
// store enforces per-app rate limits, and request ordering (cursor
// continuation, chunk sequencing) must stay strictly sequential anyway.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     oauth2.TokenSource
	limiter    *rate.Limiter
}

// NewClient creates a client for the given base URL and token source.
// A nil httpClient gets a default with a bounded per-call timeout.
func NewClient(baseURL string, tokens oauth2.TokenSource, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		tokens:     tokens,
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), 1),
	}
}

// SetRateLimit adjusts the client's request pacing in requests per second.
// Non-positive values are ignored.
func (c *Client) SetRateLimit(rps float64) {
	if rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// requestJSON performs one paced, authenticated round trip and decodes the
// JSON response into out (when non-nil).
func (c *Client) requestJSON(ctx context.Context, method, endpoint string, payload any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
		}
		token.SetAuthHeader(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: http %d: %s", shared.ErrAPIRequest, resp.StatusCode, string(raw))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrDecode, err)
	}
	return nil
}
