package authgate

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidEmail is returned by RequestReset for input that does not look
	// like local@domain.tld. Nothing is touched before this check passes.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrResetRateLimited is returned when an email exceeds its request budget
	// for the current window. Match with errors.Is; the concrete error carries
	// the time remaining until the window resets.
	ErrResetRateLimited = errors.New("reset rate limited")
	// ErrTokenInvalid covers missing, malformed, and unknown tokens alike so
	// the validation endpoint cannot be used as an existence oracle.
	ErrTokenInvalid = errors.New("reset token invalid")
	// ErrTokenUsed is returned by ValidateResetToken for a token that was
	// already redeemed.
	ErrTokenUsed = errors.New("reset token already used")
	// ErrTokenExpired is returned for a token past its expiry.
	ErrTokenExpired = errors.New("reset token expired")
	// ErrWeakPassword is returned by ResetPassword when the new password is
	// below the configured minimum length. The token is not consumed.
	ErrWeakPassword = errors.New("password below minimum length")
	// ErrInternal is the generic boundary error. Every unexpected failure
	// inside a public operation is logged with detail server-side and reported
	// to the caller as ErrInternal, never echoing internals.
	ErrInternal = errors.New("internal error")
	// ErrEngineNotReady is returned when an Engine method is called on a nil
	// or partially constructed receiver.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RateLimitedError is the concrete error behind [ErrResetRateLimited]. It
// carries the time remaining until the denied identifier's window resets.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many reset requests, try again in %d minutes", e.RetryMinutes())
}

// RetryMinutes reports the remaining wait rounded up to whole minutes,
// never less than one.
func (e *RateLimitedError) RetryMinutes() int {
	minutes := int((e.RetryAfter + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrResetRateLimited
}
