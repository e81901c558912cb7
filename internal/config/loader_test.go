package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"LIBRARY_HTTP_PORT",
		"LIBRARY_SQLITE_DSN",
		"LIBRARY_SESSION_TTL",
		"LIBRARY_LOAN_PERIOD",
		"LIBRARY_AUDIT_LIMIT",
		"LIBRARY_LOG_LEVEL",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPPort != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.HTTPPort)
	}
	if cfg.SQLiteDSN != "file:library.db" {
		t.Errorf("unexpected default DSN: %q", cfg.SQLiteDSN)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("unexpected default session TTL: %s", cfg.SessionTTL)
	}
	if cfg.LoanPeriod != 14*24*time.Hour {
		t.Errorf("unexpected default loan period: %s", cfg.LoanPeriod)
	}
	if cfg.AuditLimit != 200 {
		t.Errorf("unexpected default audit limit: %d", cfg.AuditLimit)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("unexpected default log level: %s", cfg.LogLevel)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIBRARY_HTTP_PORT", "9090")
	t.Setenv("LIBRARY_SQLITE_DSN", "file:/tmp/test.db")
	t.Setenv("LIBRARY_SESSION_TTL", "2h")
	t.Setenv("LIBRARY_LOAN_PERIOD", "168h")
	t.Setenv("LIBRARY_AUDIT_LIMIT", "50")
	t.Setenv("LIBRARY_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPPort != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTPPort)
	}
	if cfg.SQLiteDSN != "file:/tmp/test.db" {
		t.Errorf("unexpected DSN: %q", cfg.SQLiteDSN)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("unexpected session TTL: %s", cfg.SessionTTL)
	}
	if cfg.LoanPeriod != 7*24*time.Hour {
		t.Errorf("unexpected loan period: %s", cfg.LoanPeriod)
	}
	if cfg.AuditLimit != 50 {
		t.Errorf("unexpected audit limit: %d", cfg.AuditLimit)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("unexpected log level: %s", cfg.LogLevel)
	}
}

func TestLoadReportsAllInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIBRARY_HTTP_PORT", "not-a-port")
	t.Setenv("LIBRARY_SESSION_TTL", "-3h")
	t.Setenv("LIBRARY_AUDIT_LIMIT", "0")

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error")
	}

	msg := err.Error()
	for _, name := range []string{"LIBRARY_HTTP_PORT", "LIBRARY_SESSION_TTL", "LIBRARY_AUDIT_LIMIT"} {
		if !strings.Contains(msg, name) {
			t.Errorf("error does not mention %s: %s", name, msg)
		}
	}
}

func TestLoadRejectsOutOfRangePort(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIBRARY_HTTP_PORT", "70000")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for an out of range port")
	}
}
