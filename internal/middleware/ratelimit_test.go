package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterThrottles(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/fuel-balances", nil)
	req.RemoteAddr = "10.0.0.1:55000"

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", resp.Code)
	}

	// A different client is not affected.
	other := httptest.NewRequest(http.MethodGet, "/api/fuel-balances", nil)
	other.RemoteAddr = "10.0.0.2:55000"
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, other)
	if resp.Code != http.StatusOK {
		t.Fatalf("other client: expected 200, got %d", resp.Code)
	}
}

func TestRateLimiterCleanupStops(t *testing.T) {
	rl := NewRateLimiter(5, 5, nil)
	rl.StartCleanup(time.Millisecond)

	rl.StopCleanup()
	rl.StopCleanup() // second call must not panic

	// The limiter keeps serving after the cleanup goroutine exits.
	if !rl.getLimiter("10.0.0.1").Allow() {
		t.Fatal("limiter should allow after cleanup stop")
	}

	select {
	case <-rl.stop:
	default:
		t.Fatal("stop channel not closed")
	}
}
