package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ADDR", "")
	t.Setenv("REPORT_CACHE_TTL", "")
	t.Setenv("REPORT_CONCURRENCY", "")

	cfg := Load()
	if cfg.Addr != ":8080" {
		t.Fatalf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.ReportCacheTTL != 5*time.Minute {
		t.Fatalf("expected 5m cache ttl, got %s", cfg.ReportCacheTTL)
	}
	if cfg.ReportConcurrency != 4 {
		t.Fatalf("expected concurrency 4, got %d", cfg.ReportConcurrency)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REPORT_CACHE_TTL", "90s")
	t.Setenv("REPORT_CONCURRENCY", "8")
	t.Setenv("RUN_SEED", "false")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")

	cfg := Load()
	if cfg.ReportCacheTTL != 90*time.Second {
		t.Fatalf("expected 90s, got %s", cfg.ReportCacheTTL)
	}
	if cfg.ReportConcurrency != 8 {
		t.Fatalf("expected 8, got %d", cfg.ReportConcurrency)
	}
	if cfg.RunSeed {
		t.Fatalf("expected RUN_SEED=false to disable seeding")
	}
	if cfg.RateLimitPerMinute != 120 {
		t.Fatalf("expected fallback rate limit, got %d", cfg.RateLimitPerMinute)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		DatabaseURL:        "postgres://localhost/kpi",
		Environment:        "development",
		MaxBodyBytes:       4096,
		RateLimitPerMinute: 60,
		ReportConcurrency:  2,
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing database", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: "DATABASE_URL"},
		{name: "production without secret", mutate: func(c *Config) { c.Environment = "production" }, wantErr: "JWT_SECRET"},
		{name: "production short secret", mutate: func(c *Config) { c.Environment = "production"; c.JWTSecret = "short" }, wantErr: "32 characters"},
		{name: "tiny body limit", mutate: func(c *Config) { c.MaxBodyBytes = 10 }, wantErr: "MAX_BODY_BYTES"},
		{name: "zero concurrency", mutate: func(c *Config) { c.ReportConcurrency = 0 }, wantErr: "REPORT_CONCURRENCY"},
		{name: "bad redis scheme", mutate: func(c *Config) { c.RedisURL = "http://cache" }, wantErr: "REDIS_URL"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
