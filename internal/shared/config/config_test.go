package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "")
	t.Setenv("POLL_MAX_FAILURES", "")
	t.Setenv("MARKER_STORE", "")

	cfg := Load()
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("expected 2s poll interval, got %s", cfg.PollInterval)
	}
	if cfg.PollMaxFailures != 5 {
		t.Fatalf("expected 5 max failures, got %d", cfg.PollMaxFailures)
	}
	if cfg.MarkerStore != "memory" {
		t.Fatalf("expected memory marker store, got %s", cfg.MarkerStore)
	}
}

func TestLoadPostgresWithoutURLFallsBack(t *testing.T) {
	t.Setenv("MARKER_STORE", "pg")
	t.Setenv("DATABASE_URL", "")

	cfg := Load()
	if cfg.MarkerStore != "memory" {
		t.Fatalf("expected fallback to memory, got %s", cfg.MarkerStore)
	}
}

func TestLoadInvalidValuesUseDefaults(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "soon")
	t.Setenv("POLL_MAX_FAILURES", "-3")
	t.Setenv("ADVISOR_API_URL", "http://api.local/")

	cfg := Load()
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("expected default interval, got %s", cfg.PollInterval)
	}
	if cfg.PollMaxFailures != 5 {
		t.Fatalf("expected default max failures, got %d", cfg.PollMaxFailures)
	}
	if cfg.AdvisorAPIURL != "http://api.local" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.AdvisorAPIURL)
	}
}
