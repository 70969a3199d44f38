package authgate

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}

	if cfg.Reset.TokenTTL != 15*time.Minute {
		t.Fatalf("expected 15m token TTL, got %v", cfg.Reset.TokenTTL)
	}
	if cfg.Reset.RateLimitMax != 3 || cfg.Reset.RateLimitWindow != 15*time.Minute {
		t.Fatalf("expected 3 requests per 15m, got %d per %v", cfg.Reset.RateLimitMax, cfg.Reset.RateLimitWindow)
	}
	if cfg.Reset.TokenBytes != 32 {
		t.Fatalf("expected 32 token bytes, got %d", cfg.Reset.TokenBytes)
	}
	if cfg.Reset.MinPasswordLength != 8 {
		t.Fatalf("expected password floor of 8, got %d", cfg.Reset.MinPasswordLength)
	}
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero token TTL", func(c *Config) { c.Reset.TokenTTL = 0 }},
		{"short tokens", func(c *Config) { c.Reset.TokenBytes = 16 }},
		{"zero rate window", func(c *Config) { c.Reset.RateLimitWindow = 0 }},
		{"zero rate max", func(c *Config) { c.Reset.RateLimitMax = 0 }},
		{"negative block duration", func(c *Config) { c.Reset.BlockDuration = -time.Minute }},
		{"zero password floor", func(c *Config) { c.Reset.MinPasswordLength = 0 }},
		{"zero mail buffer", func(c *Config) { c.Mail.BufferSize = 0 }},
		{"negative mail retries", func(c *Config) { c.Mail.MaxRetries = -1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("APP_URL", "https://portal.example.com")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv failed: %v", err)
	}
	if cfg.PublicAppURL != "https://portal.example.com" {
		t.Fatalf("expected APP_URL to be applied, got %q", cfg.PublicAppURL)
	}
	if cfg.Reset.TokenTTL != 15*time.Minute {
		t.Fatal("expected defaults to be preserved under env overlay")
	}
}
