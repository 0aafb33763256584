package docs

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandleSpec(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/docs/openapi.yaml", nil)
	rec := httptest.NewRecorder()

	HandleSpec(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/yaml" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/yaml")
	}
	if !strings.HasPrefix(rec.Body.String(), "openapi:") {
		t.Error("body should start with 'openapi:'")
	}
}

func TestHandleDocs(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/docs", nil)
	rec := httptest.NewRecorder()

	HandleDocs(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	ct := rec.Header().Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "api-reference") {
		t.Error("body should contain 'api-reference'")
	}
	if !strings.Contains(body, "scalar") {
		t.Error("body should contain 'scalar'")
	}
	csp := rec.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "cdn.jsdelivr.net") {
		t.Errorf("CSP should allow cdn.jsdelivr.net, got %q", csp)
	}
}

func TestSpecContainsAllEndpoints(t *testing.T) {
	spec := string(specYAML)

	endpoints := []string{
		"/api/health",
		"/api/limits",
		"/api/preview",
		"/api/sessions",
		"/api/sessions/{id}",
		"/api/sessions/{id}/submit",
		"/api/sessions/{id}/media",
		"/api/sessions/{id}/reset",
		"/api/sessions/{id}/open",
		"/api/sessions/{id}/download",
		"/api/sessions/{id}/events",
	}

	for _, ep := range endpoints {
		if !strings.Contains(spec, ep) {
			t.Errorf("spec missing endpoint: %s", ep)
		}
	}
}
