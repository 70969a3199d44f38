package flows

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TokenRecord mirrors the store's record without importing it; the Engine
// converts at the boundary.
type TokenRecord struct {
	Token     string
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
	Used      bool
}

// LimitDecision is the limiter outcome as seen by the flow.
type LimitDecision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// ResetErrors carries the caller-facing sentinel errors so this package does
// not depend on the public one.
type ResetErrors struct {
	EngineNotReady error
	InvalidEmail   error
	TokenInvalid   error
	TokenUsed      error
	TokenExpired   error
	WeakPassword   error
	Internal       error
}

// ResetMetrics maps flow events to the Engine's metric IDs.
type ResetMetrics struct {
	ResetRequested   int
	ResetRateLimited int
	ResetCompleted   int
	ResetRejected    int
}

// ResetDeps is everything the reset flows need injected. Every closure
// performs exactly one side effect; the flow owns the ordering.
type ResetDeps struct {
	TokenTTL       time.Duration
	MinPasswordLen int

	Now        func() time.Time
	ValidEmail func(string) bool
	// ClientIP extracts the requester's IP from ctx for denial logs. It never
	// influences any decision.
	ClientIP func(ctx context.Context) string

	// CheckLimit consults and advances the fixed-window counter for the
	// literal email string.
	CheckLimit  func(ctx context.Context, email string) (LimitDecision, error)
	RateLimited func(retryAfter time.Duration) error

	NewToken     func() (string, error)
	SaveToken    func(ctx context.Context, record TokenRecord) error
	GetToken     func(ctx context.Context, token string) (TokenRecord, error)
	IsNotFound   func(error) bool
	ConsumeToken func(ctx context.Context, token string) (TokenRecord, error)
	// MapConsumeError translates store sentinels into caller-facing ones.
	MapConsumeError func(error) error
	SweepTokens     func(ctx context.Context) (int, error)

	// EnqueueMail hands the issued token to the asynchronous mail queue.
	// It must not block and must not fail the request.
	EnqueueMail    func(email, token string)
	UpdatePassword func(ctx context.Context, email, newPassword string) error

	MetricInc func(int)
	Log       zerolog.Logger

	Metrics ResetMetrics
	Errors  ResetErrors
}

// RunRequestReset validates the address, applies the rate limit, issues and
// stores a token, and queues delivery. The caller-visible outcome is identical
// whether or not the address belongs to an account.
func RunRequestReset(ctx context.Context, email string, deps ResetDeps) error {
	normalizeResetDeps(&deps)

	if deps.CheckLimit == nil || deps.NewToken == nil || deps.SaveToken == nil {
		return deps.Errors.EngineNotReady
	}
	if !deps.ValidEmail(email) {
		return deps.Errors.InvalidEmail
	}

	decision, err := deps.CheckLimit(ctx, email)
	if err != nil {
		deps.Log.Error().Err(err).Msg("reset rate limiter unavailable")
		return deps.Errors.Internal
	}
	if !decision.Allowed {
		deps.MetricInc(deps.Metrics.ResetRateLimited)
		deps.Log.Warn().
			Str("email", email).
			Str("client_ip", deps.ClientIP(ctx)).
			Dur("retry_after", decision.RetryAfter).
			Msg("reset request rate limited")
		return deps.RateLimited(decision.RetryAfter)
	}

	token, err := deps.NewToken()
	if err != nil {
		deps.Log.Error().Err(err).Msg("reset token generation failed")
		return deps.Errors.Internal
	}

	now := deps.Now()
	record := TokenRecord{
		Token:     token,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(deps.TokenTTL),
	}
	if err := deps.SaveToken(ctx, record); err != nil {
		deps.Log.Error().Err(err).Msg("reset token store unavailable")
		return deps.Errors.Internal
	}

	// Delivery happens off the request path. A failure there never surfaces
	// here, so the response cannot be used to enumerate accounts.
	deps.EnqueueMail(email, token)

	deps.MetricInc(deps.Metrics.ResetRequested)
	return nil
}

// RunValidateToken is a pure read used by the validation endpoint and as the
// first step of redemption. It never mutates the store.
func RunValidateToken(ctx context.Context, token string, deps ResetDeps) error {
	normalizeResetDeps(&deps)

	if deps.GetToken == nil {
		return deps.Errors.EngineNotReady
	}
	if token == "" {
		return deps.Errors.TokenInvalid
	}

	record, err := deps.GetToken(ctx, token)
	if err != nil {
		if deps.IsNotFound(err) {
			// Unknown and malformed tokens answer identically.
			return deps.Errors.TokenInvalid
		}
		deps.Log.Error().Err(err).Msg("reset token lookup failed")
		return deps.Errors.Internal
	}

	if record.Used {
		return deps.Errors.TokenUsed
	}
	if deps.Now().After(record.ExpiresAt) {
		return deps.Errors.TokenExpired
	}
	return nil
}

// RunResetPassword redeems a token: re-validate, enforce the password floor,
// atomically mark the token used, apply the backend update, then sweep.
func RunResetPassword(ctx context.Context, token, newPassword string, deps ResetDeps) error {
	normalizeResetDeps(&deps)

	if deps.ConsumeToken == nil || deps.UpdatePassword == nil {
		return deps.Errors.EngineNotReady
	}

	if err := RunValidateToken(ctx, token, deps); err != nil {
		switch err {
		case deps.Errors.TokenExpired:
			return deps.Errors.TokenExpired
		case deps.Errors.Internal, deps.Errors.EngineNotReady:
			return err
		default:
			// Used and unknown collapse to invalid for redeemers.
			return deps.Errors.TokenInvalid
		}
	}

	// Policy check before any mutation: a weak password leaves the token
	// redeemable so the user can retry with the same link.
	if len(newPassword) < deps.MinPasswordLen {
		deps.MetricInc(deps.Metrics.ResetRejected)
		return deps.Errors.WeakPassword
	}

	record, err := deps.ConsumeToken(ctx, token)
	if err != nil {
		// A concurrent redeemer may have won between validate and consume.
		return deps.MapConsumeError(err)
	}

	if err := deps.UpdatePassword(ctx, record.Email, newPassword); err != nil {
		// The token is already burned at this point; surfacing the failure is
		// still required so the caller does not believe the password changed.
		deps.Log.Error().Err(err).Msg("backend password update failed")
		return deps.Errors.Internal
	}

	// Sweep outside the consume critical section: it is O(n) over the whole
	// store and must not extend lock hold time under contention.
	if removed, err := deps.SweepTokens(ctx); err != nil {
		deps.Log.Warn().Err(err).Msg("reset token sweep failed")
	} else if removed > 0 {
		deps.Log.Debug().Int("removed", removed).Msg("reset token sweep")
	}

	deps.MetricInc(deps.Metrics.ResetCompleted)
	return nil
}

func normalizeResetDeps(deps *ResetDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ValidEmail == nil {
		deps.ValidEmail = func(string) bool { return false }
	}
	if deps.ClientIP == nil {
		deps.ClientIP = func(context.Context) string { return "" }
	}
	if deps.RateLimited == nil {
		deps.RateLimited = func(time.Duration) error { return deps.Errors.Internal }
	}
	if deps.IsNotFound == nil {
		deps.IsNotFound = func(error) bool { return false }
	}
	if deps.MapConsumeError == nil {
		deps.MapConsumeError = func(error) error { return deps.Errors.Internal }
	}
	if deps.SweepTokens == nil {
		deps.SweepTokens = func(context.Context) (int, error) { return 0, nil }
	}
	if deps.EnqueueMail == nil {
		deps.EnqueueMail = func(string, string) {}
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
}
