package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/plotvista/plotvista-backend/pkg/config"
)

type fakeLimiter struct {
	counts map[string]int64
	err    error
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{counts: make(map[string]int64)}
}

func (f *fakeLimiter) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	return f.counts[key], nil
}

func bookingConfig() config.BookingRateLimitConfig {
	return config.BookingRateLimitConfig{Window: time.Minute, IPLimit: 3, KeyLimit: 2}
}

func bookingRequest(email string) *http.Request {
	body := fmt.Sprintf(`{"name":"Asha","email":%q}`, email)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/visit-requests", strings.NewReader(body))
	req.RemoteAddr = "203.0.113.7:51000"
	return req
}

func TestBookingRateLimitPerEmail(t *testing.T) {
	limiter := newFakeLimiter()
	cfg := bookingConfig()
	cfg.IPLimit = 100
	handler := BookingRateLimit(limiter, cfg, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < cfg.KeyLimit; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, bookingRequest("asha@example.com"))
		if resp.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d", i+1, resp.Code)
		}
	}

	blocked := httptest.NewRecorder()
	handler.ServeHTTP(blocked, bookingRequest("asha@example.com"))
	if blocked.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 past the email limit got %d", blocked.Code)
	}

	other := httptest.NewRecorder()
	handler.ServeHTTP(other, bookingRequest("ravi@example.com"))
	if other.Code != http.StatusCreated {
		t.Fatalf("expected a different email to pass got %d", other.Code)
	}
}

func TestBookingRateLimitPerIP(t *testing.T) {
	limiter := newFakeLimiter()
	cfg := bookingConfig()
	cfg.KeyLimit = 0
	handler := BookingRateLimit(limiter, cfg, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < cfg.IPLimit; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, bookingRequest(fmt.Sprintf("visitor%d@example.com", i)))
		if resp.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d", i+1, resp.Code)
		}
	}

	blocked := httptest.NewRecorder()
	handler.ServeHTTP(blocked, bookingRequest("another@example.com"))
	if blocked.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 past the ip limit got %d", blocked.Code)
	}
}

func TestBookingRateLimitFailsOpen(t *testing.T) {
	limiter := newFakeLimiter()
	limiter.err = fmt.Errorf("redis down")
	handler := BookingRateLimit(limiter, bookingConfig(), testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, bookingRequest("asha@example.com"))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected fail-open 201 got %d", resp.Code)
	}
}

func TestBookingRateLimitPreservesBody(t *testing.T) {
	limiter := newFakeLimiter()
	var seen string
	handler := BookingRateLimit(limiter, bookingConfig(), testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 256)
		n, _ := r.Body.Read(buf)
		seen = string(buf[:n])
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), bookingRequest("asha@example.com"))
	if !strings.Contains(seen, "asha@example.com") {
		t.Fatalf("expected handler to see the original body, got %q", seen)
	}
}

func TestClientIPPrefersForwardedHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:9999"
	req.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.2")
	if got := clientIP(req); got != "198.51.100.4" {
		t.Fatalf("expected forwarded ip got %q", got)
	}

	req.Header.Del("X-Forwarded-For")
	if got := clientIP(req); got != "10.0.0.1" {
		t.Fatalf("expected remote addr host got %q", got)
	}
}
