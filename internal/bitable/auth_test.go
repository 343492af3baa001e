package bitable

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/bitsync/internal/shared"
	"golang.org/x/oauth2"
)

func TestTenantTokenSource(t *testing.T) {
	t.Run("fetches and caches the token", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if r.URL.Path != "/open-apis/auth/v3/tenant_access_token/internal" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Write([]byte(`{"code":0,"msg":"ok","tenant_access_token":"t-abc","expire":7200}`))
		}))
		defer server.Close()

		source := NewTenantTokenSource(server.URL, "cli_x", "secret", nil)

		token, err := source.Token()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token.AccessToken != "t-abc" {
			t.Errorf("expected t-abc, got %s", token.AccessToken)
		}
		if token.Expiry.IsZero() {
			t.Error("expected an expiry")
		}

		if _, err := source.Token(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 fetch, got %d", calls)
		}
	})

	t.Run("surfaces remote error code", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"code":10003,"msg":"invalid app_secret"}`))
		}))
		defer server.Close()

		source := NewTenantTokenSource(server.URL, "cli_x", "wrong", nil)
		_, err := source.Token()
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("rejects empty token in response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"code":0,"msg":"ok","tenant_access_token":"  "}`))
		}))
		defer server.Close()

		source := NewTenantTokenSource(server.URL, "cli_x", "secret", nil)
		if _, err := source.Token(); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("rejects http failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		source := NewTenantTokenSource(server.URL, "cli_x", "secret", nil)
		if _, err := source.Token(); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})
}

func TestClientAuthHeader(t *testing.T) {
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		w.Write([]byte(`{"code":0,"msg":"ok"}`))
	}))
	defer server.Close()

	tokens := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "t-static", TokenType: "Bearer"})
	client := NewClient(server.URL, tokens, nil)
	client.SetRateLimit(10000)

	ref := TableRef{AppToken: "appX", TableID: "tblY"}
	if err := client.CreateRecord(context.Background(), ref, map[string]any{"x": 1}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if authHeader != "Bearer t-static" {
		t.Errorf("expected bearer token header, got %q", authHeader)
	}
}
