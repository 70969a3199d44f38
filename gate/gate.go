package gate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/portalkit/authgate/token"
	"github.com/rs/zerolog"
)

type sessionContextKey struct{}

// SessionFromContext returns the verified session claims the gate attached
// for an authenticated request.
func SessionFromContext(ctx context.Context) (*token.SessionClaims, bool) {
	claims, ok := ctx.Value(sessionContextKey{}).(*token.SessionClaims)
	return claims, ok
}

// Gate decides allow, redirect, or reject for every inbound request.
//
// Gate instances are configured during initialization and then treated as
// immutable; the middleware is safe for concurrent use.
type Gate struct {
	config   Config
	verifier *token.Manager
	cache    *validationCache
	client   *http.Client
	log      zerolog.Logger
	now      func() time.Time
}

// New builds a Gate from the configuration. A nil logger disables logging.
func New(cfg Config, logger *zerolog.Logger) (*Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	verifier, err := token.NewManager(token.Config{
		Secret: cfg.SessionSecret,
		Leeway: cfg.Leeway,
	})
	if err != nil {
		return nil, err
	}

	log := zerolog.Nop()
	if logger != nil {
		log = *logger
	}

	g := &Gate{
		config:   cfg,
		verifier: verifier,
		log:      log,
		now:      time.Now,
	}
	if cfg.Introspection.Enabled {
		g.cache = newValidationCache(cfg.Introspection.CacheTTL, cfg.Introspection.CacheMaxEntries, g.now)
		g.client = &http.Client{Timeout: cfg.Introspection.Timeout}
	}

	return g, nil
}

// Middleware wraps next with the gate's classification and decision logic.
// Bypass routes short-circuit before any token work.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if g.isBypass(path) {
			next.ServeHTTP(w, r)
			return
		}

		reqLog := g.log.With().
			Str("request_id", uuid.NewString()).
			Str("path", path).
			Logger()

		rawToken, claims := g.extractSession(r)
		authenticated := claims != nil

		// A logged-in user has no business on the sign-in form. The other
		// auth pages stay reachable on purpose.
		if authenticated && path == g.config.SignInPath {
			http.Redirect(w, r, g.config.DashboardPath, http.StatusFound)
			return
		}

		// Auth pages are their own class: reachable regardless of session
		// state, even when the path would otherwise fall under a protected
		// prefix.
		if g.isAuthPage(path) {
			next.ServeHTTP(w, r)
			return
		}

		dashboard := g.isDashboard(path)
		api := g.isProtectedAPI(path)
		if !dashboard && !api {
			next.ServeHTTP(w, r)
			return
		}

		if authenticated && g.config.Introspection.Enabled {
			if !g.remoteValid(r.Context(), rawToken, reqLog) {
				authenticated = false
			}
		}

		if !authenticated {
			if api {
				reqLog.Debug().Msg("unauthenticated api request rejected")
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}
			reqLog.Debug().Msg("unauthenticated dashboard request redirected")
			g.redirectToSignIn(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *Gate) isBypass(path string) bool {
	for _, prefix := range g.config.StaticPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	for _, route := range g.config.PublicAPIRoutes {
		if strings.HasSuffix(route, "/") {
			if strings.HasPrefix(path, route) {
				return true
			}
		} else if path == route {
			return true
		}
	}
	return false
}

func (g *Gate) isAuthPage(path string) bool {
	for _, page := range g.config.AuthPages {
		if path == page {
			return true
		}
	}
	return false
}

func (g *Gate) isDashboard(path string) bool {
	return path == g.config.DashboardPath || strings.HasPrefix(path, g.config.DashboardPath+"/")
}

func (g *Gate) isProtectedAPI(path string) bool {
	return path == g.config.APIPrefix || strings.HasPrefix(path, g.config.APIPrefix+"/")
}

// extractSession derives the authentication state: session cookie first,
// Authorization bearer as the API fallback. Absence or any verification
// failure simply means unauthenticated.
func (g *Gate) extractSession(r *http.Request) (string, *token.SessionClaims) {
	if cookie, err := r.Cookie(g.config.SessionCookie); err == nil && cookie.Value != "" {
		if claims, err := g.verifier.Verify(cookie.Value); err == nil {
			return cookie.Value, claims
		}
	}

	if raw, ok := bearerToken(r.Header.Get("Authorization")); ok {
		if claims, err := g.verifier.Verify(raw); err == nil {
			return raw, claims
		}
	}

	return "", nil
}

func (g *Gate) redirectToSignIn(w http.ResponseWriter, r *http.Request) {
	callback := r.URL.Path
	if r.URL.RawQuery != "" {
		callback += "?" + r.URL.RawQuery
	}

	target := g.config.SignInPath + "?" + g.config.CallbackParam + "=" + url.QueryEscape(callback)
	http.Redirect(w, r, target, http.StatusFound)
}

// remoteValid re-validates the bearer token against the backend, consulting
// the bounded verdict cache first. Only a definitive 200 marks the token
// valid on its own; any other outcome is decided by the fail-open policy.
func (g *Gate) remoteValid(ctx context.Context, rawToken string, log zerolog.Logger) bool {
	if valid, fresh := g.cache.get(rawToken); fresh {
		return valid
	}

	valid := g.introspect(ctx, rawToken, log)
	g.cache.put(rawToken, valid)
	return valid
}

func (g *Gate) introspect(ctx context.Context, rawToken string, log zerolog.Logger) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.config.Introspection.Endpoint, nil)
	if err != nil {
		return g.failOpen(log, err)
	}
	req.Header.Set("Authorization", "Bearer "+rawToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return g.failOpen(log, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return g.failOpen(log, nil)
	}
	return true
}

func (g *Gate) failOpen(log zerolog.Logger, err error) bool {
	if g.config.Introspection.FailOpenOnIntrospectionError {
		log.Warn().Err(err).Msg("token introspection failed, failing open")
		return true
	}
	log.Warn().Err(err).Msg("token introspection failed, rejecting")
	return false
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	raw := value[len(bearer):]
	if raw == "" {
		return "", false
	}
	return raw, true
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
