package auth

import (
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
)

const tokenFilePermMode = 0o600

// LoadToken loads the persisted OAuth token from tokenPath.
func LoadToken(tokenPath string) (*oauth2.Token, error) {
	data, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("unable to decode token: %w", err)
	}

	return &token, nil
}

// SaveToken writes the raw token JSON to tokenPath with restricted
// permissions.
func SaveToken(tokenPath string, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("unable to encode token: %w", err)
	}

	if err := os.WriteFile(tokenPath, data, tokenFilePermMode); err != nil {
		return fmt.Errorf("unable to write token file: %w", err)
	}

	return nil
}
