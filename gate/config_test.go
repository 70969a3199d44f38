package gate

import "testing"

func TestDefaultConfigRouteMap(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.SessionCookie != "portal_session" {
		t.Fatalf("unexpected session cookie %q", cfg.SessionCookie)
	}
	if cfg.SignInPath != "/signin" || cfg.DashboardPath != "/dashboard" {
		t.Fatalf("unexpected page paths %q %q", cfg.SignInPath, cfg.DashboardPath)
	}
	if cfg.CallbackParam != "callbackUrl" {
		t.Fatalf("unexpected callback parameter %q", cfg.CallbackParam)
	}
	if cfg.Introspection.Enabled {
		t.Fatal("introspection must default to disabled")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("BACKEND_API_URL", "https://api.example.com")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv failed: %v", err)
	}
	if string(cfg.SessionSecret) != "0123456789abcdef0123456789abcdef" {
		t.Fatal("expected SESSION_SECRET to be applied")
	}
	if cfg.Introspection.Endpoint != "https://api.example.com/auth/introspect" {
		t.Fatalf("unexpected introspection endpoint %q", cfg.Introspection.Endpoint)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("env config should validate, got %v", err)
	}
}
