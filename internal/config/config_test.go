package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("ACCESS_TOKEN_SECRET", "access-secret")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredSecrets(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected 15m access ttl, got %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 90*24*time.Hour {
		t.Fatalf("expected 90d refresh ttl, got %v", cfg.RefreshTokenTTL)
	}
	if cfg.BcryptCost != 10 {
		t.Fatalf("expected bcrypt cost 10, got %d", cfg.BcryptCost)
	}
}

func TestLoadMissingSecretsFails(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "")
	t.Setenv("REFRESH_TOKEN_SECRET", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "validate config:") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadIdenticalSecretsFails(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "same")
	t.Setenv("REFRESH_TOKEN_SECRET", "same")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "secrets must differ") {
		t.Fatalf("expected secret mismatch error, got %v", err)
	}
}

func TestLoadBadDurationFails(t *testing.T) {
	setRequiredSecrets(t)
	t.Setenv("ACCESS_TOKEN_TTL", "not-a-duration")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "parse ACCESS_TOKEN_TTL") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestLoadRefreshMustExceedAccess(t *testing.T) {
	setRequiredSecrets(t)
	t.Setenv("ACCESS_TOKEN_TTL", "1h")
	t.Setenv("REFRESH_TOKEN_TTL", "30m")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "REFRESH_TOKEN_TTL") {
		t.Fatalf("expected ttl ordering error, got %v", err)
	}
}
