package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfigFile(t, "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned an error: %v", err)
	}

	if cfg.CalendarID != "primary" {
		t.Errorf("expected default calendar ID %q, got %q", "primary", cfg.CalendarID)
	}

	if cfg.Timezone != "Asia/Kolkata" {
		t.Errorf("expected default timezone %q, got %q", "Asia/Kolkata", cfg.Timezone)
	}

	if cfg.TokenPath == "" {
		t.Error("expected a default token path to be set")
	}

	if cfg.CredentialsPath == "" {
		t.Error("expected a default credentials path to be set")
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfigFile(t, `
calendar_id: team-cal@group.calendar.google.com
timezone: Europe/Berlin
credentials_path: /etc/issuecal/credentials.json
token_path: /etc/issuecal/token.json
issue_tracker_url: https://tracker.example.com/issues
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned an error: %v", err)
	}

	if cfg.CalendarID != "team-cal@group.calendar.google.com" {
		t.Errorf("unexpected calendar ID %q", cfg.CalendarID)
	}

	if cfg.Timezone != "Europe/Berlin" {
		t.Errorf("unexpected timezone %q", cfg.Timezone)
	}

	if cfg.CredentialsPath != "/etc/issuecal/credentials.json" {
		t.Errorf("unexpected credentials path %q", cfg.CredentialsPath)
	}

	if cfg.IssueTrackerURL != "https://tracker.example.com/issues" {
		t.Errorf("unexpected issue tracker URL %q", cfg.IssueTrackerURL)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
calendar_id: from-file@group.calendar.google.com
timezone: Europe/Berlin
`)

	t.Setenv("ISSUECAL_CALENDAR_ID", "from-env@group.calendar.google.com")
	t.Setenv("ISSUECAL_TIMEZONE", "America/New_York")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned an error: %v", err)
	}

	if cfg.CalendarID != "from-env@group.calendar.google.com" {
		t.Errorf("expected env override to win, got %q", cfg.CalendarID)
	}

	if cfg.Timezone != "America/New_York" {
		t.Errorf("expected env override to win, got %q", cfg.Timezone)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() with missing file returned an error: %v", err)
	}

	if cfg.CalendarID != "primary" {
		t.Errorf("expected default calendar ID, got %q", cfg.CalendarID)
	}
}

func TestLoad_InvalidTimezone(t *testing.T) {
	path := writeConfigFile(t, "timezone: Not/AZone\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an invalid timezone")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "calendar_id: [unclosed\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}
