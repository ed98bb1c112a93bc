package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

// fakeTokenEndpoint stands in for the provider's token endpoint. It records
// the authorization code it received and returns a fixed token pair.
func fakeTokenEndpoint(t *testing.T, gotCode *string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		*gotCode = r.Form.Get("code")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"test-access","refresh_token":"test-refresh","token_type":"Bearer","expires_in":3600}`)
	}))
}

func testOAuthConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		RedirectURL:  "https://example.com/callback",
		Scopes:       []string{"https://www.googleapis.com/auth/calendar"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.google.com/o/oauth2/auth",
			TokenURL: tokenURL,
		},
	}
}

func TestExchange(t *testing.T) {
	var gotCode string
	server := fakeTokenEndpoint(t, &gotCode)
	defer server.Close()

	cfg := testOAuthConfig(server.URL)

	token, err := Exchange(context.Background(), cfg, "plain-code")
	if err != nil {
		t.Fatalf("Exchange() returned an error: %v", err)
	}

	if gotCode != "plain-code" {
		t.Errorf("token endpoint received code %q, want %q", gotCode, "plain-code")
	}

	if token.AccessToken != "test-access" {
		t.Errorf("unexpected access token %q", token.AccessToken)
	}

	if token.RefreshToken != "test-refresh" {
		t.Errorf("unexpected refresh token %q", token.RefreshToken)
	}
}

func TestExchange_PercentEncodedCode(t *testing.T) {
	var gotCode string
	server := fakeTokenEndpoint(t, &gotCode)
	defer server.Close()

	cfg := testOAuthConfig(server.URL)

	// Codes pasted from a redirect URL commonly arrive as "4%2F0Adeu...".
	if _, err := Exchange(context.Background(), cfg, "4%2F0Adeu-code"); err != nil {
		t.Fatalf("Exchange() returned an error: %v", err)
	}

	if gotCode != "4/0Adeu-code" {
		t.Errorf("token endpoint received code %q, want %q", gotCode, "4/0Adeu-code")
	}
}

func TestExchange_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	cfg := testOAuthConfig(server.URL)

	_, err := Exchange(context.Background(), cfg, "bad-code")
	if err == nil {
		t.Fatal("expected an error for a rejected code")
	}

	var exchangeErr *ExchangeError
	if !errors.As(err, &exchangeErr) {
		t.Errorf("expected *ExchangeError, got %T: %v", err, err)
	}
}

type fixedPrompter struct {
	code    string
	authURL string
}

func (p *fixedPrompter) Prompt(authURL string) (string, error) {
	p.authURL = authURL
	return p.code, nil
}

func TestAuthorize_WritesTokenArtifact(t *testing.T) {
	var gotCode string
	server := fakeTokenEndpoint(t, &gotCode)
	defer server.Close()

	cfg := testOAuthConfig(server.URL)
	tokenPath := filepath.Join(t.TempDir(), "token.json")
	prompter := &fixedPrompter{code: "bootstrap-code"}

	if err := Authorize(context.Background(), cfg, prompter, tokenPath); err != nil {
		t.Fatalf("Authorize() returned an error: %v", err)
	}

	if prompter.authURL == "" {
		t.Fatal("prompter was not shown an authorization URL")
	}

	// Offline access must be requested so a refresh token is issued.
	if want := "access_type=offline"; !strings.Contains(prompter.authURL, want) {
		t.Errorf("authorization URL %q missing %q", prompter.authURL, want)
	}

	token, err := LoadToken(tokenPath)
	if err != nil {
		t.Fatalf("LoadToken() returned an error: %v", err)
	}

	if token.RefreshToken != "test-refresh" {
		t.Errorf("persisted token missing refresh token, got %q", token.RefreshToken)
	}

	info, err := os.Stat(tokenPath)
	if err != nil {
		t.Fatalf("failed to stat token file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file permissions = %v, want 0600", perm)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token.json")

	saved := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).Round(time.Second),
	}

	if err := SaveToken(tokenPath, saved); err != nil {
		t.Fatalf("SaveToken() returned an error: %v", err)
	}

	loaded, err := LoadToken(tokenPath)
	if err != nil {
		t.Fatalf("LoadToken() returned an error: %v", err)
	}

	if loaded.AccessToken != saved.AccessToken || loaded.RefreshToken != saved.RefreshToken {
		t.Errorf("loaded token %+v does not match saved token %+v", loaded, saved)
	}
}

func TestLoadToken_Missing(t *testing.T) {
	if _, err := LoadToken(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected an error for a missing token file")
	}
}

func TestLoadClientSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	contents := `{
		"web": {
			"client_id": "id-123.apps.googleusercontent.com",
			"client_secret": "secret-456",
			"redirect_uris": ["https://example.com/callback", "https://example.com/alt"]
		}
	}`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write credentials file: %v", err)
	}

	secret, err := LoadClientSecret(path)
	if err != nil {
		t.Fatalf("LoadClientSecret() returned an error: %v", err)
	}

	cfg, err := OAuthConfig(secret)
	if err != nil {
		t.Fatalf("OAuthConfig() returned an error: %v", err)
	}

	if cfg.ClientID != "id-123.apps.googleusercontent.com" {
		t.Errorf("unexpected client ID %q", cfg.ClientID)
	}

	// The first redirect URI is used.
	if cfg.RedirectURL != "https://example.com/callback" {
		t.Errorf("unexpected redirect URL %q", cfg.RedirectURL)
	}

	if len(cfg.Scopes) != 2 {
		t.Errorf("expected read-only and full calendar scopes, got %v", cfg.Scopes)
	}
}

func TestLoadClientSecret_Missing(t *testing.T) {
	if _, err := LoadClientSecret(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected an error for a missing client secret file")
	}
}

func TestOAuthConfig_NoRedirectURIs(t *testing.T) {
	var secret ClientSecret
	secret.Web.ClientID = "id"
	secret.Web.ClientSecret = "secret"

	if _, err := OAuthConfig(&secret); err == nil {
		t.Fatal("expected an error when no redirect URIs are configured")
	}
}
