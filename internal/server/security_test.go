package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/timemachinetv/timemachine/internal/httputil"
)

func serveWithSecurity(cfg SecurityConfig) (*httptest.ResponseRecorder, string) {
	var capturedNonce string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedNonce = httputil.NonceFromContext(r.Context())
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	securityHeaders(cfg)(inner).ServeHTTP(rec, req)
	return rec, capturedNonce
}

func TestSecurityHeaders_CSPContainsNonce(t *testing.T) {
	rec, nonce := serveWithSecurity(SecurityConfig{BaseURL: "https://tv.test"})

	if nonce == "" {
		t.Fatal("expected non-empty nonce in context")
	}
	csp := rec.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "script-src 'self' 'nonce-"+nonce+"'") {
		t.Errorf("CSP should contain script nonce, got: %s", csp)
	}
	if strings.Contains(csp, "'unsafe-inline'") {
		t.Errorf("CSP should not contain 'unsafe-inline', got: %s", csp)
	}
}

func TestSecurityHeaders_CSPAllowsMediaOrigin(t *testing.T) {
	rec, _ := serveWithSecurity(SecurityConfig{
		BaseURL:     "https://tv.test",
		MediaOrigin: "https://enter.pollinations.ai",
	})

	csp := rec.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "media-src 'self' blob: https://enter.pollinations.ai;") {
		t.Errorf("CSP media-src should include generation origin, got: %s", csp)
	}
}

func TestSecurityHeaders_HSTSOnlyForHTTPS(t *testing.T) {
	secure, _ := serveWithSecurity(SecurityConfig{BaseURL: "https://tv.test"})
	if secure.Header().Get("Strict-Transport-Security") == "" {
		t.Error("expected HSTS header for https base URL")
	}

	plain, _ := serveWithSecurity(SecurityConfig{BaseURL: "http://localhost:8080"})
	if plain.Header().Get("Strict-Transport-Security") != "" {
		t.Error("expected no HSTS header for http base URL")
	}
}

func TestSecurityHeaders_StaticHeaders(t *testing.T) {
	rec, _ := serveWithSecurity(SecurityConfig{})

	expected := map[string]string{
		"Referrer-Policy":        "no-referrer",
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "SAMEORIGIN",
	}
	for header, value := range expected {
		if got := rec.Header().Get(header); got != value {
			t.Errorf("expected %s=%q, got %q", header, value, got)
		}
	}
}

func TestOriginOf(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"https://enter.pollinations.ai/api/generate/image", "https://enter.pollinations.ai"},
		{"http://localhost:9999/gen", "http://localhost:9999"},
		{"not a url", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := originOf(tt.raw); got != tt.expected {
			t.Errorf("originOf(%q): expected %q, got %q", tt.raw, tt.expected, got)
		}
	}
}
