package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaultsPerEnvironment(t *testing.T) {
	cases := []struct {
		env        string
		wantLevel  string
		wantMin    time.Duration
		wantMax    int
		wantWindow time.Duration
	}{
		{"development", "debug", 5 * time.Second, 100, 15 * time.Minute},
		{"uat", "info", 10 * time.Second, 60, time.Hour},
		{"production", "warn", 15 * time.Second, 30, time.Hour},
		{"staging", "debug", 5 * time.Second, 100, 15 * time.Minute},
	}
	for _, c := range cases {
		t.Setenv("APP_ENV", c.env)
		cfg := FromEnv()
		if cfg.App.Env != c.env {
			t.Fatalf("env=%q, want %q", cfg.App.Env, c.env)
		}
		if cfg.Logger.Level != c.wantLevel {
			t.Fatalf("%s: log level=%q, want %q", c.env, cfg.Logger.Level, c.wantLevel)
		}
		if cfg.Screening.MinSubmissionTime != c.wantMin {
			t.Fatalf("%s: min submission=%s, want %s", c.env, cfg.Screening.MinSubmissionTime, c.wantMin)
		}
		if cfg.App.RateLimitMax != c.wantMax || cfg.App.RateLimitWindow != c.wantWindow {
			t.Fatalf("%s: rate limit=%d/%s, want %d/%s", c.env, cfg.App.RateLimitMax, cfg.App.RateLimitWindow, c.wantMax, c.wantWindow)
		}
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("MIN_SUBMISSION_TIME_SECONDS", "3")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("PORT", "8081")
	cfg := FromEnv()
	if cfg.Screening.MinSubmissionTime != 3*time.Second {
		t.Fatalf("min submission=%s, want 3s", cfg.Screening.MinSubmissionTime)
	}
	if len(cfg.App.CORSOrigins) != 2 {
		t.Fatalf("cors origins=%v", cfg.App.CORSOrigins)
	}
	if cfg.Addr() != ":8081" {
		t.Fatalf("addr=%q", cfg.Addr())
	}
	if cfg.IsDevelopment() {
		t.Fatalf("production must not be development")
	}
	if cfg.App.TrustProxy {
		t.Fatalf("proxy headers must not be trusted unless TRUST_PROXY is set")
	}
	t.Setenv("TRUST_PROXY", "true")
	if !FromEnv().App.TrustProxy {
		t.Fatalf("TRUST_PROXY=true must enable proxy headers")
	}
}

func TestNegativeMinSubmissionClampsToZero(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("MIN_SUBMISSION_TIME_SECONDS", "-4")
	if got := FromEnv().Screening.MinSubmissionTime; got != 0 {
		t.Fatalf("min submission=%s, want 0", got)
	}
}
