package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const minimalConfig = `
bot:
  token: "test-token"
model:
  base_url: "http://localhost:8080/v1"
  name: "test-model"
limits:
  gold_users: [1010101010, 1234567890]
`

func TestLoadConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(minimalConfig), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Limits.RequestsPerMinute != 5 {
		t.Errorf("RequestsPerMinute = %d, want 5", cfg.Limits.RequestsPerMinute)
	}
	if cfg.Limits.MinuteWindow != time.Minute {
		t.Errorf("MinuteWindow = %v, want 1m", cfg.Limits.MinuteWindow)
	}
	if cfg.Limits.RequestsPerWeek != 75 {
		t.Errorf("RequestsPerWeek = %d, want 75", cfg.Limits.RequestsPerWeek)
	}
	if cfg.Limits.WeekWindow != 7*24*time.Hour {
		t.Errorf("WeekWindow = %v, want 168h", cfg.Limits.WeekWindow)
	}
	if cfg.History.MaxTurns != 20 {
		t.Errorf("MaxTurns = %d, want 20", cfg.History.MaxTurns)
	}
	if cfg.History.MaxBufferMessages != 50 {
		t.Errorf("MaxBufferMessages = %d, want 50", cfg.History.MaxBufferMessages)
	}
	if cfg.Document.MaxChars != 15000 {
		t.Errorf("Document.MaxChars = %d, want 15000", cfg.Document.MaxChars)
	}
	if cfg.Document.FragmentChars != 2000 {
		t.Errorf("Document.FragmentChars = %d, want 2000", cfg.Document.FragmentChars)
	}
	if cfg.History.Type != "file" {
		t.Errorf("History.Type = %q, want file", cfg.History.Type)
	}

	if !cfg.Limits.IsGold(1010101010) {
		t.Error("allow-listed user should be gold")
	}
	if cfg.Limits.IsGold(42) {
		t.Error("unlisted user must not be gold")
	}
}

func TestLoadConfigRejectsMissingToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
model:
  base_url: "http://localhost:8080/v1"
  name: "test-model"
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("expected validation error for missing bot token")
	}
}
