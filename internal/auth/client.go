package auth

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// Client returns an authenticated HTTP client backed by the token artifact
// the bootstrap produced. The oauth2 transport refreshes the access token
// from the stored refresh token as needed; no interactive flow is attempted
// here.
func Client(ctx context.Context, cfg *oauth2.Config, tokenPath string) (*http.Client, error) {
	token, err := LoadToken(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("no stored credentials (run the authorize command first): %w", err)
	}

	return oauth2.NewClient(ctx, cfg.TokenSource(ctx, token)), nil
}
