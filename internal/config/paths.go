package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	configDirName     = "issuecal"
	configFileName    = "config.yaml"
	credentialsFile   = "credentials.json"
	tokenFile         = "token.json"
	configDirPermMode = 0o700
)

// Dir returns the configuration directory path (~/.config/issuecal)
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", configDirName), nil
}

// DefaultPath returns the path to the YAML config file
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// DefaultCredentialsPath returns the path to the OAuth client-secret file
func DefaultCredentialsPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, credentialsFile), nil
}

// DefaultTokenPath returns the path to the OAuth token file
func DefaultTokenPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, tokenFile), nil
}

// EnsureDir creates the configuration directory if it doesn't exist
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		// Create directory with restricted permissions
		if err := os.MkdirAll(dir, configDirPermMode); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	return nil
}
