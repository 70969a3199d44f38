package gate

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/portalkit/authgate/token"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestGate(t *testing.T, mutate func(*Config)) *Gate {
	t.Helper()

	cfg := DefaultConfig()
	cfg.SessionSecret = testSecret
	if mutate != nil {
		mutate(&cfg)
	}

	g, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return g
}

func newSessionToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	m, err := token.NewManager(token.Config{Secret: testSecret})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	raw, err := m.Create("user-1", "alice@example.com", ttl)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return raw
}

// serve runs one request through the gate and reports whether the inner
// handler was reached.
func serve(g *Gate, req *http.Request) (*httptest.ResponseRecorder, *bool) {
	reached := false
	handler := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, &reached
}

func withSessionCookie(req *http.Request, raw string) *http.Request {
	req.AddCookie(&http.Cookie{Name: "portal_session", Value: raw})
	return req
}

func TestGateBypassRoutes(t *testing.T) {
	g := newTestGate(t, nil)

	for _, path := range []string{
		"/static/app.js",
		"/assets/logo.png",
		"/favicon.ico",
		"/api/auth/login",
		"/api/auth/request-reset",
		"/api/countries",
		"/api/currencies",
		"/api/partners/register",
	} {
		rec, reached := serve(g, httptest.NewRequest(http.MethodGet, path, nil))
		if !*reached || rec.Code != http.StatusOK {
			t.Fatalf("%s: expected bypass, got status %d reached=%v", path, rec.Code, *reached)
		}
	}
}

func TestGateAuthPagesOpenToAnonymous(t *testing.T) {
	g := newTestGate(t, nil)

	for _, path := range []string{"/signin", "/signup", "/forgot-password", "/reset-password"} {
		rec, reached := serve(g, httptest.NewRequest(http.MethodGet, path, nil))
		if !*reached || rec.Code != http.StatusOK {
			t.Fatalf("%s: expected pass-through, got status %d", path, rec.Code)
		}
	}
}

func TestGateRedirectsAnonymousDashboard(t *testing.T) {
	g := newTestGate(t, nil)

	rec, reached := serve(g, httptest.NewRequest(http.MethodGet, "/dashboard/account?tab=settings", nil))
	if *reached {
		t.Fatal("inner handler must not run for anonymous dashboard request")
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	want := "/signin?callbackUrl=%2Fdashboard%2Faccount%3Ftab%3Dsettings"
	if got := rec.Header().Get("Location"); got != want {
		t.Fatalf("expected redirect to %q, got %q", want, got)
	}
}

func TestGateRejectsAnonymousAPI(t *testing.T) {
	g := newTestGate(t, nil)

	rec, reached := serve(g, httptest.NewRequest(http.MethodGet, "/api/transactions", nil))
	if *reached {
		t.Fatal("inner handler must not run for anonymous API request")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body["error"] != "UNAUTHORIZED" || body["message"] != "Authentication required" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestGateAdmitsSessionCookie(t *testing.T) {
	g := newTestGate(t, nil)
	raw := newSessionToken(t, time.Hour)

	req := withSessionCookie(httptest.NewRequest(http.MethodGet, "/dashboard", nil), raw)

	handler := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := SessionFromContext(r.Context())
		if !ok || claims.Email != "alice@example.com" {
			t.Fatalf("expected session claims in context, got %+v ok=%v", claims, ok)
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestGateAdmitsBearerHeaderForAPI(t *testing.T) {
	g := newTestGate(t, nil)
	raw := newSessionToken(t, time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	req.Header.Set("Authorization", "Bearer "+raw)

	rec, reached := serve(g, req)
	if !*reached || rec.Code != http.StatusOK {
		t.Fatalf("expected bearer token to authenticate, got %d", rec.Code)
	}
}

func TestGateTreatsBadTokenAsAnonymous(t *testing.T) {
	g := newTestGate(t, nil)

	expiredClaims := token.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, expiredClaims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign expired token: %v", err)
	}

	for name, raw := range map[string]string{
		"garbage": "not-a-jwt",
		"expired": expired,
	} {
		req := withSessionCookie(httptest.NewRequest(http.MethodGet, "/dashboard", nil), raw)
		rec, reached := serve(g, req)
		if *reached || rec.Code != http.StatusFound {
			t.Fatalf("%s: expected redirect for bad token, got %d reached=%v", name, rec.Code, *reached)
		}
	}
}

func TestGateRedirectsAuthenticatedOffSignIn(t *testing.T) {
	g := newTestGate(t, nil)
	raw := newSessionToken(t, time.Hour)

	req := withSessionCookie(httptest.NewRequest(http.MethodGet, "/signin", nil), raw)
	rec, reached := serve(g, req)
	if *reached {
		t.Fatal("sign-in page must not render for an authenticated user")
	}
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/dashboard" {
		t.Fatalf("expected 302 to /dashboard, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	// The other auth pages stay reachable with a live session.
	req = withSessionCookie(httptest.NewRequest(http.MethodGet, "/forgot-password", nil), raw)
	rec, reached = serve(g, req)
	if !*reached || rec.Code != http.StatusOK {
		t.Fatalf("expected /forgot-password to pass through, got %d", rec.Code)
	}
}

func TestGateAuthPagesDriveClassification(t *testing.T) {
	// Membership in AuthPages is what makes a path an auth page: an entry
	// under the dashboard tree stays reachable anonymously.
	g := newTestGate(t, func(cfg *Config) {
		cfg.AuthPages = append(cfg.AuthPages, "/dashboard/accept-invite")
	})

	rec, reached := serve(g, httptest.NewRequest(http.MethodGet, "/dashboard/accept-invite", nil))
	if !*reached || rec.Code != http.StatusOK {
		t.Fatalf("expected configured auth page to pass through, got %d reached=%v", rec.Code, *reached)
	}

	// A sibling path not listed is still protected.
	rec, reached = serve(g, httptest.NewRequest(http.MethodGet, "/dashboard/account", nil))
	if *reached || rec.Code != http.StatusFound {
		t.Fatalf("expected unlisted dashboard path to redirect, got %d reached=%v", rec.Code, *reached)
	}
}

func newIntrospectionBackend(status int) (*httptest.Server, *atomic.Int64) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(status)
	}))
	return srv, &calls
}

func introspectionGate(t *testing.T, endpoint string, failOpen bool) *Gate {
	t.Helper()
	return newTestGate(t, func(cfg *Config) {
		cfg.Introspection = IntrospectionConfig{
			Enabled:                      true,
			Endpoint:                     endpoint,
			Timeout:                      time.Second,
			CacheTTL:                     5 * time.Minute,
			CacheMaxEntries:              100,
			FailOpenOnIntrospectionError: failOpen,
		}
	})
}

func TestGateIntrospectionAdmitsOnOK(t *testing.T) {
	srv, calls := newIntrospectionBackend(http.StatusOK)
	defer srv.Close()

	g := introspectionGate(t, srv.URL, true)
	raw := newSessionToken(t, time.Hour)

	req := withSessionCookie(httptest.NewRequest(http.MethodGet, "/dashboard", nil), raw)
	rec, reached := serve(g, req)
	if !*reached || rec.Code != http.StatusOK {
		t.Fatalf("expected introspected request to pass, got %d", rec.Code)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 introspection call, got %d", calls.Load())
	}
}

func TestGateIntrospectionCachesVerdict(t *testing.T) {
	srv, calls := newIntrospectionBackend(http.StatusOK)
	defer srv.Close()

	g := introspectionGate(t, srv.URL, true)
	raw := newSessionToken(t, time.Hour)

	for i := 0; i < 3; i++ {
		req := withSessionCookie(httptest.NewRequest(http.MethodGet, "/dashboard", nil), raw)
		if rec, _ := serve(g, req); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected cached verdict after first call, got %d calls", calls.Load())
	}
}

func TestGateIntrospectionFailsOpen(t *testing.T) {
	// Backend rejects, but the fail-open policy admits.
	srv, _ := newIntrospectionBackend(http.StatusUnauthorized)
	defer srv.Close()

	g := introspectionGate(t, srv.URL, true)
	raw := newSessionToken(t, time.Hour)

	req := withSessionCookie(httptest.NewRequest(http.MethodGet, "/dashboard", nil), raw)
	rec, reached := serve(g, req)
	if !*reached || rec.Code != http.StatusOK {
		t.Fatalf("expected fail-open admit, got %d", rec.Code)
	}
}

func TestGateIntrospectionFailsOpenOnDeadBackend(t *testing.T) {
	srv, _ := newIntrospectionBackend(http.StatusOK)
	srv.Close() // connection refused from here on

	g := introspectionGate(t, srv.URL, true)
	raw := newSessionToken(t, time.Hour)

	req := withSessionCookie(httptest.NewRequest(http.MethodGet, "/dashboard", nil), raw)
	rec, reached := serve(g, req)
	if !*reached || rec.Code != http.StatusOK {
		t.Fatalf("expected fail-open admit with dead backend, got %d", rec.Code)
	}
}

func TestGateIntrospectionStrictModeRejects(t *testing.T) {
	srv, _ := newIntrospectionBackend(http.StatusUnauthorized)
	defer srv.Close()

	g := introspectionGate(t, srv.URL, false)
	raw := newSessionToken(t, time.Hour)

	req := withSessionCookie(httptest.NewRequest(http.MethodGet, "/dashboard", nil), raw)
	rec, reached := serve(g, req)
	if *reached {
		t.Fatal("strict mode must not admit a rejected token")
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect to sign-in, got %d", rec.Code)
	}
}

func TestGateConfigValidation(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Fatal("expected error for empty config")
	}

	cfg := DefaultConfig()
	cfg.SessionSecret = testSecret
	cfg.Introspection.Enabled = true
	if _, err := New(cfg, nil); err == nil {
		t.Fatal("expected error for enabled introspection without endpoint")
	}
}
