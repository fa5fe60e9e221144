package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAllowsWithinBurst(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 3, time.Minute, nil)
	handler := l.Middleware()(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.RemoteAddr = "203.0.113.7:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("over-burst request: status = %d, want 429", rec.Code)
	}
}

func TestLimitsPerIP(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1, time.Minute, nil)
	handler := l.Middleware()(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/events", nil)
	first.RemoteAddr = "203.0.113.7:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("first ip: status = %d, want 200", rec.Code)
	}

	// A different client has its own bucket.
	second := httptest.NewRequest(http.MethodGet, "/events", nil)
	second.RemoteAddr = "203.0.113.8:1234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	if rec.Code != http.StatusOK {
		t.Fatalf("second ip: status = %d, want 200", rec.Code)
	}
}

func TestForwardedForIgnoredFromUntrustedPeer(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1, time.Minute, []string{"10.0.0.0/8"})

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.RemoteAddr = "203.0.113.7:1234"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")

	if got := l.clientIP(req); got != "203.0.113.7" {
		t.Errorf("clientIP = %q, want RemoteAddr when peer is untrusted", got)
	}
}

func TestForwardedForHonoredFromTrustedProxy(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1, time.Minute, []string{"10.0.0.1"})

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.RemoteAddr = "10.0.0.1:9999"
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")

	if got := l.clientIP(req); got != "198.51.100.1" {
		t.Errorf("clientIP = %q, want leftmost X-Forwarded-For entry", got)
	}
}
