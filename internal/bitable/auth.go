package bitable

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/bitsync/internal/shared"
	"golang.org/x/oauth2"
)

// tokenLeeway is subtracted from the reported expiry so a token is refreshed
// before the store starts rejecting it.
const tokenLeeway = 5 * time.Minute

type tenantTokenResponse struct {
	apiEnvelope
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int    `json:"expire"`
}

// tenantTokenSource issues Feishu tenant access tokens for an app identity
// and caches them until near expiry.
type tenantTokenSource struct {
	baseURL    string
	appID      string
	appSecret  string
	httpClient *http.Client

	mu    sync.Mutex
	token *oauth2.Token
}

// NewTenantTokenSource returns an [oauth2.TokenSource] backed by the
// tenant_access_token/internal endpoint. A nil httpClient gets a default
// with a bounded timeout.
func NewTenantTokenSource(baseURL, appID, appSecret string, httpClient *http.Client) oauth2.TokenSource {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &tenantTokenSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		appID:      appID,
		appSecret:  appSecret,
		httpClient: httpClient,
	}
}

func (s *tenantTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token.Valid() {
		return s.token, nil
	}

	token, err := s.fetch()
	if err != nil {
		return nil, err
	}
	s.token = token
	return token, nil
}

func (s *tenantTokenSource) fetch() (*oauth2.Token, error) {
	payload, err := json.Marshal(map[string]string{
		"app_id":     s.appID,
		"app_secret": s.appSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode token request: %w", err)
	}

	url := s.baseURL + "/open-apis/auth/v3/tenant_access_token/internal"
	resp, err := s.httpClient.Post(url, "application/json; charset=utf-8", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: tenant token http %d", shared.ErrAuthFailed, resp.StatusCode)
	}

	var decoded tenantTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	if decoded.Code != 0 {
		return nil, fmt.Errorf("%w: tenant token error: code=%d msg=%s", shared.ErrAuthFailed, decoded.Code, decoded.Msg)
	}

	accessToken := strings.TrimSpace(decoded.TenantAccessToken)
	if accessToken == "" {
		return nil, fmt.Errorf("%w: tenant token missing in response", shared.ErrAuthFailed)
	}

	token := &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
	if decoded.Expire > 0 {
		token.Expiry = time.Now().Add(time.Duration(decoded.Expire)*time.Second - tokenLeeway)
	}
	return token, nil
}
