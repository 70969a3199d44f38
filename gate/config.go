package gate

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config defines the gate's route map and verification parameters.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable; [New] keeps the value it is given.
type Config struct {
	// SessionSecret is the shared secret the session tokens are signed with.
	SessionSecret []byte
	// SessionCookie is the cookie carrying the session token for page
	// requests; API requests may use an Authorization bearer header instead.
	SessionCookie string
	// Leeway absorbs clock skew during token verification.
	Leeway time.Duration

	// SignInPath is the only auth page a logged-in user is redirected away
	// from. Signup and the password pages stay reachable with a live session:
	// registering a second account or resetting a password mid-session is
	// allowed portal behavior.
	SignInPath string
	// AuthPages are exact-match page paths classified as auth pages: always
	// reachable, with or without a session, even when the path falls under a
	// protected prefix.
	AuthPages     []string
	DashboardPath string
	APIPrefix     string
	// PublicAPIRoutes bypass authentication entirely: reference lookups and
	// self-registration endpoints that must work for anonymous visitors, plus
	// the auth endpoints themselves. Entries ending in "/" match as prefixes.
	PublicAPIRoutes []string
	// StaticPrefixes are asset paths passed through untouched.
	StaticPrefixes []string
	// CallbackParam is the query parameter carrying the original path+query
	// through the sign-in redirect.
	CallbackParam string

	Introspection IntrospectionConfig
}

// IntrospectionConfig controls the optional remote re-validation of session
// tokens against the backend. Disabled in the observed deployment; the cache
// and fail-open policy are specified for when it is turned on.
type IntrospectionConfig struct {
	Enabled bool
	// Endpoint is the backend URL the raw bearer token is presented to.
	Endpoint string
	// Timeout bounds the only blocking network call in the request path.
	Timeout time.Duration
	// CacheTTL is the freshness window of a cached verdict; older entries are
	// re-validated.
	CacheTTL time.Duration
	// CacheMaxEntries triggers a full-scan prune of stale entries once the
	// cache grows past it. Not an LRU.
	CacheMaxEntries int
	// FailOpenOnIntrospectionError treats any non-200 or network failure as
	// valid, trading strictness for availability so a flaky introspection
	// endpoint cannot take the portal down. Reversing this is a deliberate
	// operational decision, hence the explicit name.
	FailOpenOnIntrospectionError bool
}

// DefaultConfig returns the portal's observed route map and policies.
func DefaultConfig() Config {
	return Config{
		SessionCookie: "portal_session",
		Leeway:        30 * time.Second,
		SignInPath:    "/signin",
		AuthPages: []string{
			"/signin",
			"/signup",
			"/forgot-password",
			"/reset-password",
		},
		DashboardPath: "/dashboard",
		APIPrefix:     "/api",
		PublicAPIRoutes: []string{
			"/api/auth/",
			"/api/countries",
			"/api/currencies",
			"/api/partners/register",
		},
		StaticPrefixes: []string{
			"/static/",
			"/assets/",
			"/favicon.ico",
		},
		CallbackParam: "callbackUrl",
		Introspection: IntrospectionConfig{
			Enabled:                      false,
			Timeout:                      3 * time.Second,
			CacheTTL:                     5 * time.Minute,
			CacheMaxEntries:              100,
			FailOpenOnIntrospectionError: true,
		},
	}
}

// Validate checks the configuration for values the gate cannot operate with.
func (c *Config) Validate() error {
	if len(c.SessionSecret) < 32 {
		return errors.New("session secret must be at least 32 bytes")
	}
	if c.SignInPath == "" || c.DashboardPath == "" {
		return errors.New("sign-in and dashboard paths are required")
	}
	if c.CallbackParam == "" {
		return errors.New("callback parameter name is required")
	}
	if c.Introspection.Enabled {
		if c.Introspection.Endpoint == "" {
			return errors.New("introspection endpoint required when enabled")
		}
		if c.Introspection.Timeout <= 0 {
			return errors.New("introspection timeout must be positive")
		}
		if c.Introspection.CacheTTL <= 0 {
			return errors.New("introspection cache TTL must be positive")
		}
		if c.Introspection.CacheMaxEntries <= 0 {
			return errors.New("introspection cache bound must be positive")
		}
	}
	return nil
}

type envConfig struct {
	SessionSecret string `env:"SESSION_SECRET"`
	BackendURL    string `env:"BACKEND_API_URL"`
}

// ConfigFromEnv returns [DefaultConfig] overlaid with environment settings:
// SESSION_SECRET and BACKEND_API_URL (the introspection endpoint base).
func ConfigFromEnv() (Config, error) {
	parsed, err := env.ParseAs[envConfig]()
	if err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	cfg.SessionSecret = []byte(parsed.SessionSecret)
	if parsed.BackendURL != "" {
		cfg.Introspection.Endpoint = parsed.BackendURL + "/auth/introspect"
	}
	return cfg, nil
}
