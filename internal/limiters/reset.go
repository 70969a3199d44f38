package limiters

import (
	"context"
	"errors"
	"time"
)

var ErrLimiterUnavailable = errors.New("rate limiter unavailable")

// Config holds fixed-window parameters: at most MaxAttempts allowed calls per
// Window, keyed by the literal identifier string.
type Config struct {
	Window      time.Duration
	MaxAttempts int
}

// Decision is the outcome of one Allow call. RetryAfter is only meaningful
// when Allowed is false.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// ResetLimiter throttles reset requests per identifier. Allow both consults
// and advances the window counter; the window is anchored at its first hit
// and never extended by later calls, allowed or denied.
type ResetLimiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}
