package auth

import (
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// ClientSecret mirrors the OAuth client JSON downloaded from the Google
// Cloud Console for a web application.
type ClientSecret struct {
	Web struct {
		ClientID     string   `json:"client_id"`
		ClientSecret string   `json:"client_secret"`
		RedirectURIs []string `json:"redirect_uris"`
	} `json:"web"`
}

// LoadClientSecret reads and parses the client-secret document at path.
func LoadClientSecret(path string) (*ClientSecret, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	var secret ClientSecret
	if err := json.Unmarshal(data, &secret); err != nil {
		return nil, fmt.Errorf("unable to parse client secret file: %w", err)
	}

	if secret.Web.ClientID == "" || secret.Web.ClientSecret == "" {
		return nil, fmt.Errorf("client secret file is missing web.client_id or web.client_secret")
	}

	return &secret, nil
}

// OAuthConfig builds the oauth2 configuration used by both the bootstrap and
// the steady-state client. Read-only and full calendar scopes are requested;
// the first configured redirect URI is used.
func OAuthConfig(secret *ClientSecret) (*oauth2.Config, error) {
	if len(secret.Web.RedirectURIs) == 0 {
		return nil, fmt.Errorf("client secret file has no redirect URIs")
	}

	return &oauth2.Config{
		ClientID:     secret.Web.ClientID,
		ClientSecret: secret.Web.ClientSecret,
		RedirectURL:  secret.Web.RedirectURIs[0],
		Scopes: []string{
			calendar.CalendarReadonlyScope,
			calendar.CalendarScope,
		},
		Endpoint: google.Endpoint,
	}, nil
}
