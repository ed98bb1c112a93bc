package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// ExchangeError is a typed failure from redeeming an authorization code.
// The bootstrap is a manual, one-time flow; exchange failures are never
// retried, the operator restarts the bootstrap instead.
type ExchangeError struct {
	Err error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("authorization code exchange failed: %v", e.Err)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// CodePrompter supplies the authorization code during the interactive
// bootstrap. The interactive prompt itself lives outside this package; the
// core only consumes the code string it produces.
type CodePrompter interface {
	Prompt(authURL string) (string, error)
}

// AuthCodeURL returns the consent URL for the bootstrap. Offline access is
// requested so the provider issues a refresh token, not just a short-lived
// access token.
func AuthCodeURL(cfg *oauth2.Config) string {
	return cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
}

// Exchange redeems an authorization code for a token pair. Codes pasted
// straight from a redirect URL are often percent-encoded; that is tolerated.
func Exchange(ctx context.Context, cfg *oauth2.Config, code string) (*oauth2.Token, error) {
	code = strings.TrimSpace(code)
	if decoded, err := url.QueryUnescape(code); err == nil {
		code = decoded
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, &ExchangeError{Err: err}
	}

	return token, nil
}

// Authorize runs the one-time credential bootstrap: present the consent URL,
// collect the authorization code, exchange it, and persist the token to
// tokenPath. It is never invoked again once the token artifact exists.
func Authorize(ctx context.Context, cfg *oauth2.Config, prompter CodePrompter, tokenPath string) error {
	code, err := prompter.Prompt(AuthCodeURL(cfg))
	if err != nil {
		return fmt.Errorf("unable to read authorization code: %w", err)
	}

	token, err := Exchange(ctx, cfg, code)
	if err != nil {
		return err
	}

	if err := SaveToken(tokenPath, token); err != nil {
		return fmt.Errorf("unable to save token: %w", err)
	}

	return nil
}
