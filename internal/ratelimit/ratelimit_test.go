package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(rate float64, burst int) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewLimiter(rate, burst)
	l.now = clock.now
	return l, clock
}

func TestRequestsWithinBurstAreAllowed(t *testing.T) {
	burst := 5
	limiter, _ := newTestLimiter(1, burst)

	for i := 0; i < burst; i++ {
		if !limiter.Allow("192.168.1.1") {
			t.Errorf("request %d within burst of %d should be allowed", i+1, burst)
		}
	}
}

func TestRequestsExceedingBurstAreDenied(t *testing.T) {
	limiter, _ := newTestLimiter(1, 3)

	for i := 0; i < 3; i++ {
		limiter.Allow("192.168.1.1")
	}

	if limiter.Allow("192.168.1.1") {
		t.Error("request exceeding burst should be denied")
	}
}

func TestTokensReplenishOverTime(t *testing.T) {
	limiter, clock := newTestLimiter(2, 1)

	limiter.Allow("10.0.0.1")
	if limiter.Allow("10.0.0.1") {
		t.Fatal("expected request to be denied after exhausting burst")
	}

	clock.advance(600 * time.Millisecond)
	if !limiter.Allow("10.0.0.1") {
		t.Error("expected request to be allowed after token replenishment")
	}
}

func TestDifferentClientsHaveIndependentLimits(t *testing.T) {
	limiter, _ := newTestLimiter(1, 1)

	limiter.Allow("10.0.0.1")
	if limiter.Allow("10.0.0.1") {
		t.Error("expected second request from first client to be denied")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Error("expected first request from second client to be allowed")
	}
}

func TestZeroBurstStillAllowsOne(t *testing.T) {
	limiter, _ := newTestLimiter(1, 0)
	if !limiter.Allow("a") {
		t.Error("expected first request to be allowed")
	}
}

func TestPruneDropsIdleBuckets(t *testing.T) {
	limiter, clock := newTestLimiter(1, 1)
	limiter.Allow("old")
	clock.advance(idleVisitorTTL + time.Second)
	limiter.Allow("new")

	limiter.Prune()

	if _, ok := limiter.buckets["old"]; ok {
		t.Error("expected idle bucket removed")
	}
	if _, ok := limiter.buckets["new"]; !ok {
		t.Error("expected active bucket kept")
	}
}

func TestMiddlewareReturns429WhenLimited(t *testing.T) {
	limiter, _ := newTestLimiter(1, 1)
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/submit", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/submit", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") != "10" {
		t.Errorf("expected Retry-After 10, got %q", second.Header().Get("Retry-After"))
	}
	if ct := second.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON body, got %q", ct)
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		expected   string
	}{
		{"remote addr with port", "192.0.2.1:1234", "", "192.0.2.1"},
		{"remote addr without port", "192.0.2.1", "", "192.0.2.1"},
		{"forwarded single", "10.0.0.1:80", "203.0.113.5", "203.0.113.5"},
		{"forwarded chain", "10.0.0.1:80", "203.0.113.5, 10.0.0.2", "203.0.113.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientKey(req); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
