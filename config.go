package authgate

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config defines the tuning parameters for the reset token lifecycle.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable; [Builder.Build] clones the value it is given.
type Config struct {
	// PublicAppURL is the externally reachable base URL of the portal, used
	// to construct reset links ("<PublicAppURL>/reset-password?token=...").
	PublicAppURL string

	Reset   ResetConfig
	Mail    MailDispatchConfig
	Metrics MetricsConfig
}

// ResetConfig controls token issuance and redemption.
type ResetConfig struct {
	// TokenTTL is the fixed validity window of an issued token.
	TokenTTL time.Duration
	// TokenBytes is the entropy of a token before hex encoding.
	TokenBytes int
	// RateLimitWindow and RateLimitMax bound issuance per email address:
	// at most RateLimitMax requests per RateLimitWindow, counted against the
	// literal address string (no case normalization).
	RateLimitWindow time.Duration
	RateLimitMax    int
	// BlockDuration is declared for configuration compatibility with the
	// portal's settings but is not applied as a separate cooldown; throttling
	// is window-based only.
	BlockDuration time.Duration
	// MinPasswordLength is the acceptance floor for new passwords. A
	// rejection does not consume the token.
	MinPasswordLength int
	// RedisPrefix namespaces store and limiter keys when the Engine is built
	// with a Redis client.
	RedisPrefix string
}

// MailDispatchConfig controls the asynchronous mail queue.
type MailDispatchConfig struct {
	BufferSize   int
	MaxRetries   int
	RetryBackoff time.Duration
	// DropIfFull makes Enqueue non-blocking: when the buffer is full the job
	// is counted as dropped instead of stalling the request path.
	DropIfFull bool
}

// MetricsConfig enables the Engine's in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the configuration observed in production: a 15 minute
// token window, 3 requests per 15 minute rate window, 32-byte tokens, and an
// 8 character password floor.
func DefaultConfig() Config {
	return Config{
		Reset: ResetConfig{
			TokenTTL:          15 * time.Minute,
			TokenBytes:        32,
			RateLimitWindow:   15 * time.Minute,
			RateLimitMax:      3,
			BlockDuration:     time.Hour,
			MinPasswordLength: 8,
			RedisPrefix:       "agr",
		},
		Mail: MailDispatchConfig{
			BufferSize:   64,
			MaxRetries:   2,
			RetryBackoff: 2 * time.Second,
			DropIfFull:   true,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Validate checks the configuration for values the Engine cannot operate
// with. It does not fill defaults; use [DefaultConfig] as the base.
func (c *Config) Validate() error {
	if c.Reset.TokenTTL <= 0 {
		return errors.New("reset token TTL must be positive")
	}
	if c.Reset.TokenBytes < 32 {
		return errors.New("reset tokens require at least 32 bytes of entropy")
	}
	if c.Reset.RateLimitWindow <= 0 {
		return errors.New("rate limit window must be positive")
	}
	if c.Reset.RateLimitMax <= 0 {
		return errors.New("rate limit max must be positive")
	}
	if c.Reset.BlockDuration < 0 {
		return errors.New("block duration must not be negative")
	}
	if c.Reset.MinPasswordLength < 1 {
		return errors.New("minimum password length must be positive")
	}
	if c.Mail.BufferSize <= 0 {
		return errors.New("mail buffer size must be positive")
	}
	if c.Mail.MaxRetries < 0 {
		return errors.New("mail max retries must not be negative")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	// All fields are values; a shallow copy is a deep copy.
	return cfg
}

type envConfig struct {
	PublicAppURL string `env:"APP_URL"`
}

// ConfigFromEnv returns [DefaultConfig] overlaid with environment settings
// (currently APP_URL for reset link construction).
func ConfigFromEnv() (Config, error) {
	parsed, err := env.ParseAs[envConfig]()
	if err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	cfg.PublicAppURL = parsed.PublicAppURL
	return cfg, nil
}
