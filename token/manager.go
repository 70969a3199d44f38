package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid is returned for any token that does not verify: bad
// signature, wrong algorithm, malformed, or expired.
var ErrTokenInvalid = errors.New("invalid session token")

// Config holds the verification parameters. Secret is the shared
// session-signing secret; Leeway absorbs small clock skew between the portal
// and the backend that issued the token.
type Config struct {
	Secret []byte
	Issuer string
	Leeway time.Duration
}

// SessionClaims is the decoded session token payload.
type SessionClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Manager verifies (and, for logins and tests, creates) session tokens.
//
// Manager instances are configured during initialization and then treated as
// immutable; all methods are safe for concurrent use.
type Manager struct {
	config Config
}

func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("session secret must be at least 32 bytes")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg}, nil
}

// Create issues a signed session token for the subject. Used by the login
// handler and by tests; the gate itself only verifies.
func (m *Manager) Create(subject, email string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("invalid token TTL")
	}

	now := time.Now()
	claims := SessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
}

// Verify parses and validates a session token. Any failure collapses to
// [ErrTokenInvalid]; callers treat that uniformly as unauthenticated.
func (m *Manager) Verify(tokenString string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.config.Leeway),
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	}, options...)
	if err != nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
