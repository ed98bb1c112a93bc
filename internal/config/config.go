package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultCalendarID = "primary"
	defaultTimezone   = "Asia/Kolkata"
)

// Config is the top-level application configuration. It is loaded once at
// startup and injected into the components that need it; nothing re-reads
// the environment per call.
type Config struct {
	// CalendarID is the Google Calendar resource the linker operates on.
	CalendarID string `yaml:"calendar_id"`

	// Timezone is the IANA zone applied to recurring events so their
	// expansion tracks daylight-saving transitions (e.g. "Asia/Kolkata").
	Timezone string `yaml:"timezone"`

	// CredentialsPath is the OAuth client-secret JSON downloaded from the
	// Google Cloud Console (expects a "web" section).
	CredentialsPath string `yaml:"credentials_path"`

	// TokenPath is where the bootstrap writes the refresh token and where
	// steady-state clients read it back.
	TokenPath string `yaml:"token_path"`

	// IssueTrackerURL is the base URL used to render issue back-links in
	// event descriptions. Optional; plain "#<id>" references are rendered
	// when unset.
	IssueTrackerURL string `yaml:"issue_tracker_url"`

	// APIEndpoint overrides the Calendar API endpoint. Used by tests to
	// point at a mock server; leave empty in production.
	APIEndpoint string `yaml:"api_endpoint"`
}

// Load reads configuration from the YAML file at path (or the default
// location when path is empty), then applies environment overrides and
// defaults. A missing config file is not an error; the defaults stand.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// No config file; env overrides and defaults apply.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnv overrides file-sourced values with ISSUECAL_* environment
// variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("ISSUECAL_CALENDAR_ID"); v != "" {
		c.CalendarID = v
	}
	if v := os.Getenv("ISSUECAL_TIMEZONE"); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv("ISSUECAL_CREDENTIALS_PATH"); v != "" {
		c.CredentialsPath = v
	}
	if v := os.Getenv("ISSUECAL_TOKEN_PATH"); v != "" {
		c.TokenPath = v
	}
	if v := os.Getenv("ISSUECAL_ISSUE_TRACKER_URL"); v != "" {
		c.IssueTrackerURL = v
	}
	if v := os.Getenv("ISSUECAL_API_ENDPOINT"); v != "" {
		c.APIEndpoint = v
	}
}

func (c *Config) applyDefaults() error {
	if c.CalendarID == "" {
		c.CalendarID = defaultCalendarID
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.CredentialsPath == "" {
		path, err := DefaultCredentialsPath()
		if err != nil {
			return err
		}
		c.CredentialsPath = path
	}
	if c.TokenPath == "" {
		path, err := DefaultTokenPath()
		if err != nil {
			return err
		}
		c.TokenPath = path
	}
	return nil
}

func (c *Config) validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}
