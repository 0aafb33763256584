package server

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })
	return &buf
}

func TestSlogMiddleware_LogsRequest(t *testing.T) {
	buf := captureLogs(t)

	r := chi.NewRouter()
	r.Use(slogMiddleware)
	r.Get("/api/preview", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/preview", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	output := buf.String()
	for _, field := range []string{
		"method=GET",
		"path=/api/preview",
		"status=200",
		"remote_addr=",
		"duration_ms=",
		"browser=Chrome",
	} {
		if !strings.Contains(output, field) {
			t.Errorf("expected log to contain %q, got: %s", field, output)
		}
	}
}

func TestSlogMiddleware_SkipsHealthCheck(t *testing.T) {
	buf := captureLogs(t)

	r := chi.NewRouter()
	r.Use(slogMiddleware)
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if buf.Len() != 0 {
		t.Errorf("expected no log output for /api/health, got: %s", buf.String())
	}
}

func TestSlogMiddleware_LogsNon200Status(t *testing.T) {
	buf := captureLogs(t)

	r := chi.NewRouter()
	r.Use(slogMiddleware)
	r.Get("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	if !strings.Contains(buf.String(), "status=404") {
		t.Errorf("expected log to contain status=404, got: %s", buf.String())
	}
}

func TestStatusRecorderHijackRequiresSupport(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	if _, _, err := rec.Hijack(); err == nil {
		t.Error("expected error when underlying writer cannot hijack")
	}
}

func TestBrowserName(t *testing.T) {
	tests := []struct {
		ua       string
		expected string
	}{
		{"", "unknown"},
		{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:121.0) Gecko/20100101 Firefox/121.0", "Firefox"},
		{"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", "bot"},
	}

	for _, tt := range tests {
		if got := browserName(tt.ua); got != tt.expected {
			t.Errorf("browserName(%q): expected %q, got %q", tt.ua, tt.expected, got)
		}
	}
}
