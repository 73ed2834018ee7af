package config

import (
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DSN", "host=localhost user=test password=test dbname=test port=5432 sslmode=disable")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("EMAIL_API_URL", "https://api.mail.example/v1/send")
	t.Setenv("EMAIL_API_KEY", "test-key")
	t.Setenv("OPERATOR_EMAIL", "ops@example.com")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", cfg.APIPort)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", cfg.LogLevel)
	}
	if cfg.PollIntervalSec != 5 {
		t.Errorf("PollIntervalSec = %d, want 5", cfg.PollIntervalSec)
	}
	if cfg.PollBatchSize != 10 {
		t.Errorf("PollBatchSize = %d, want 10", cfg.PollBatchSize)
	}
	if cfg.MonitorIntervalSec != 60 {
		t.Errorf("MonitorIntervalSec = %d, want 60", cfg.MonitorIntervalSec)
	}
	if cfg.StrugglingAttemptsMin != 3 {
		t.Errorf("StrugglingAttemptsMin = %d, want 3", cfg.StrugglingAttemptsMin)
	}
	if cfg.DegradedThreshold != 20 {
		t.Errorf("DegradedThreshold = %d, want 20", cfg.DegradedThreshold)
	}
	if cfg.SweepIntervalSec != 3600 {
		t.Errorf("SweepIntervalSec = %d, want 3600", cfg.SweepIntervalSec)
	}
	if cfg.WebhookFallbackURL != "" {
		t.Errorf("WebhookFallbackURL = %q, want empty", cfg.WebhookFallbackURL)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("POLL_INTERVAL_SEC", "2")
	t.Setenv("WEBHOOK_FALLBACK_URL", "https://hooks.example/notify")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", cfg.APIPort)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
	if cfg.PollIntervalSec != 2 {
		t.Errorf("PollIntervalSec = %d, want 2", cfg.PollIntervalSec)
	}
	if cfg.WebhookFallbackURL != "https://hooks.example/notify" {
		t.Errorf("WebhookFallbackURL = %q, unexpected", cfg.WebhookFallbackURL)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_DSN", "host=localhost")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing required env vars, got nil")
	}
}
