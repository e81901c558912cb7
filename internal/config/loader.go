package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the library
// service.
type Config struct {
	HTTPPort   int
	SQLiteDSN  string
	SessionTTL time.Duration
	LoanPeriod time.Duration
	AuditLimit int
	LogLevel   slog.Level
}

// Load parses configuration values from the current process environment.
//
// Every field has a working default so the service boots with no environment
// at all; set values are validated and bad ones reported together.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:   8080,
		SQLiteDSN:  "file:library.db",
		SessionTTL: 24 * time.Hour,
		LoanPeriod: 14 * 24 * time.Hour,
		AuditLimit: 200,
		LogLevel:   slog.LevelInfo,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("LIBRARY_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "LIBRARY_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("LIBRARY_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("LIBRARY_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "LIBRARY_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if periodValue := strings.TrimSpace(os.Getenv("LIBRARY_LOAN_PERIOD")); periodValue != "" {
		period, err := time.ParseDuration(periodValue)
		if err != nil || period <= 0 {
			invalid = append(invalid, "LIBRARY_LOAN_PERIOD")
		} else {
			cfg.LoanPeriod = period
		}
	}

	if limitValue := strings.TrimSpace(os.Getenv("LIBRARY_AUDIT_LIMIT")); limitValue != "" {
		limit, err := strconv.Atoi(limitValue)
		if err != nil || limit <= 0 {
			invalid = append(invalid, "LIBRARY_AUDIT_LIMIT")
		} else {
			cfg.AuditLimit = limit
		}
	}

	if levelValue := strings.TrimSpace(os.Getenv("LIBRARY_LOG_LEVEL")); levelValue != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(levelValue)); err != nil {
			invalid = append(invalid, "LIBRARY_LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
