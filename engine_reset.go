package authgate

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/portalkit/authgate/internal"
	internalflows "github.com/portalkit/authgate/internal/flows"
	"github.com/portalkit/authgate/internal/stores"
)

// Matches the portal's own check: something@something.tld, no whitespace.
// Deliberately looser than RFC 5322; the backend is the authority on which
// addresses actually exist.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// RequestReset validates the address, applies the per-email fixed-window
// rate limit, and on allowance issues a single-use token and queues the reset
// mail. The returned error is nil for every allowed request, whether or not
// an account exists for the address — callers must present the same generic
// message either way.
//
// Errors: [ErrInvalidEmail], [ErrResetRateLimited] (carrying minutes until
// the window resets), [ErrInternal].
func (e *Engine) RequestReset(ctx context.Context, email string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	return e.mapBoundary(internalflows.RunRequestReset(ctx, email, e.resetFlowDeps()))
}

// ValidateResetToken reports the redeemability of a token without mutating
// anything; it is safe to call repeatedly.
//
// Errors: [ErrTokenInvalid] (missing, malformed, or unknown — the three are
// indistinguishable by design), [ErrTokenUsed], [ErrTokenExpired],
// [ErrInternal]. A nil return means the token is currently redeemable.
func (e *Engine) ValidateResetToken(ctx context.Context, token string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	return e.mapBoundary(internalflows.RunValidateToken(ctx, token, e.resetFlowDeps()))
}

// ResetPassword redeems a token. The check-and-mark-used step is atomic per
// token: concurrent redemptions of the same token produce exactly one nil
// return. A password policy rejection leaves the token redeemable.
//
// Errors: [ErrTokenExpired], [ErrTokenInvalid] (any other token state,
// including already-used), [ErrWeakPassword], [ErrInternal].
func (e *Engine) ResetPassword(ctx context.Context, token, newPassword string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	return e.mapBoundary(internalflows.RunResetPassword(ctx, token, newPassword, e.resetFlowDeps()))
}

func (e *Engine) resetFlowDeps() internalflows.ResetDeps {
	deps := internalflows.ResetDeps{
		TokenTTL:       e.config.Reset.TokenTTL,
		MinPasswordLen: e.config.Reset.MinPasswordLength,
		Now:            e.now,
		ValidEmail:     emailPattern.MatchString,
		ClientIP:       clientIPFromContext,
		RateLimited: func(retryAfter time.Duration) error {
			return &RateLimitedError{RetryAfter: retryAfter}
		},
		NewToken: func() (string, error) {
			return internal.NewResetToken(e.config.Reset.TokenBytes)
		},
		IsNotFound: func(err error) bool {
			return errors.Is(err, stores.ErrTokenNotFound)
		},
		MapConsumeError: mapConsumeError,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		Log: e.log,
		Metrics: internalflows.ResetMetrics{
			ResetRequested:   int(MetricResetRequested),
			ResetRateLimited: int(MetricResetRateLimited),
			ResetCompleted:   int(MetricResetCompleted),
			ResetRejected:    int(MetricResetRejected),
		},
		Errors: internalflows.ResetErrors{
			EngineNotReady: ErrEngineNotReady,
			InvalidEmail:   ErrInvalidEmail,
			TokenInvalid:   ErrTokenInvalid,
			TokenUsed:      ErrTokenUsed,
			TokenExpired:   ErrTokenExpired,
			WeakPassword:   ErrWeakPassword,
			Internal:       ErrInternal,
		},
	}

	if e.limiter != nil {
		deps.CheckLimit = func(ctx context.Context, email string) (internalflows.LimitDecision, error) {
			decision, err := e.limiter.Allow(ctx, email)
			if err != nil {
				return internalflows.LimitDecision{}, err
			}
			return internalflows.LimitDecision{
				Allowed:    decision.Allowed,
				RetryAfter: decision.RetryAfter,
			}, nil
		}
	}
	if e.tokens != nil {
		deps.SaveToken = func(ctx context.Context, record internalflows.TokenRecord) error {
			return e.tokens.Save(ctx, stores.ResetToken{
				Token:     record.Token,
				Email:     record.Email,
				CreatedAt: record.CreatedAt,
				ExpiresAt: record.ExpiresAt,
			})
		}
		deps.GetToken = func(ctx context.Context, token string) (internalflows.TokenRecord, error) {
			record, err := e.tokens.Get(ctx, token)
			if err != nil {
				return internalflows.TokenRecord{}, err
			}
			return toFlowRecord(record), nil
		}
		deps.ConsumeToken = func(ctx context.Context, token string) (internalflows.TokenRecord, error) {
			record, err := e.tokens.Consume(ctx, token)
			if err != nil {
				return internalflows.TokenRecord{}, err
			}
			return toFlowRecord(record), nil
		}
		deps.SweepTokens = e.tokens.Sweep
	}
	if e.mail != nil {
		deps.EnqueueMail = e.mail.Enqueue
	}
	if e.backend != nil {
		deps.UpdatePassword = e.backend.UpdatePassword
	}

	return deps
}

func toFlowRecord(record stores.ResetToken) internalflows.TokenRecord {
	return internalflows.TokenRecord{
		Token:     record.Token,
		Email:     record.Email,
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
		Used:      record.Used,
	}
}

// mapConsumeError translates a lost consume race into the redeemer-facing
// error set: expiry keeps its specific code, everything else collapses to
// invalid.
func mapConsumeError(err error) error {
	switch {
	case errors.Is(err, stores.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, stores.ErrTokenUsed), errors.Is(err, stores.ErrTokenNotFound):
		return ErrTokenInvalid
	default:
		return ErrInternal
	}
}

// mapBoundary is the Engine's last line: any error that is not one of the
// public sentinels is logged and reported as ErrInternal so internals never
// reach a caller.
func (e *Engine) mapBoundary(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrResetRateLimited),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrTokenUsed),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrWeakPassword),
		errors.Is(err, ErrEngineNotReady),
		errors.Is(err, ErrInternal):
		return err
	default:
		e.log.Error().Err(err).Msg("unexpected reset engine error")
		return ErrInternal
	}
}
