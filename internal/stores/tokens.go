package stores

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTokenNotFound    = errors.New("reset token not found")
	ErrTokenUsed        = errors.New("reset token already used")
	ErrTokenExpired     = errors.New("reset token expired")
	ErrStoreUnavailable = errors.New("reset token store unavailable")
)

// ResetToken is the stored record for one issued token. The Token string is
// both the map key and the bearer credential; Used flips false→true exactly
// once and is never reversed.
type ResetToken struct {
	Token     string
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
	Used      bool
}

// TokenStore is the injected store abstraction for reset tokens.
type TokenStore interface {
	// Save stores a freshly issued record keyed by its token string.
	Save(ctx context.Context, record ResetToken) error
	// Get returns the record as stored, including used and expired ones that
	// have not been swept yet. Callers classify state against their own clock;
	// Get never mutates.
	Get(ctx context.Context, token string) (ResetToken, error)
	// Consume atomically checks redeemability and marks the record used.
	// Under concurrent redemption of the same token exactly one call returns
	// the record; the rest fail with ErrTokenUsed (or ErrTokenNotFound /
	// ErrTokenExpired as applicable).
	Consume(ctx context.Context, token string) (ResetToken, error)
	// Sweep deletes every used or expired record and reports how many were
	// removed. It is invoked opportunistically after a successful redemption,
	// never on a schedule.
	Sweep(ctx context.Context) (int, error)
}
