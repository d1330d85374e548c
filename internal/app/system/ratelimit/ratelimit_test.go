package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_BurstThenDeny(t *testing.T) {
	l := New(3, 3)
	for i := 0; i < 3; i++ {
		if !l.Allow("k") {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
	}
	if l.Allow("k") {
		t.Error("4th request allowed, want denied")
	}
	if !l.Allow("other") {
		t.Error("separate key should have its own bucket")
	}
}

func TestLimiter_Refills(t *testing.T) {
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	l := New(60, 1)
	l.now = func() time.Time { return now }

	if !l.Allow("k") {
		t.Fatal("first request denied")
	}
	if l.Allow("k") {
		t.Fatal("second immediate request allowed")
	}
	now = now.Add(time.Second)
	if !l.Allow("k") {
		t.Error("request after refill interval denied")
	}
}

func TestLimiter_ResetAndSweep(t *testing.T) {
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	l := New(1, 1)
	l.now = func() time.Time { return now }

	l.Allow("k")
	if l.Allow("k") {
		t.Fatal("expected deny before reset")
	}
	l.Reset("k")
	if !l.Allow("k") {
		t.Fatal("expected allow after reset")
	}

	now = now.Add(l.idle - time.Second)
	l.Allow("fresh")
	now = now.Add(2 * time.Second)
	l.sweep()
	l.mu.Lock()
	_, stale := l.buckets["k"]
	_, fresh := l.buckets["fresh"]
	l.mu.Unlock()
	if stale {
		t.Error("idle bucket was not swept")
	}
	if !fresh {
		t.Error("recently used bucket was swept")
	}
}

func TestLimiter_AllowDoesNotSweep(t *testing.T) {
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	l := New(1, 1)
	l.now = func() time.Time { return now }

	l.Allow("k")
	now = now.Add(l.idle + time.Second)
	l.Allow("other")
	l.mu.Lock()
	n := len(l.buckets)
	l.mu.Unlock()
	if n != 2 {
		t.Errorf("buckets = %d, want 2 (sweeping belongs to the cleanup loop)", n)
	}
}

func TestAllowEmail_Normalizes(t *testing.T) {
	l := New(1, 1)
	if !l.AllowEmail("Ari@Example.com ") {
		t.Fatal("first attempt denied")
	}
	if l.AllowEmail("ari@example.com") {
		t.Error("same normalized email should share a bucket")
	}
	l.ResetEmail("ARI@example.com")
	if !l.AllowEmail("ari@example.com") {
		t.Error("expected allow after ResetEmail")
	}
	if !l.AllowEmail("") {
		t.Error("empty email is never limited")
	}
}

func TestMiddleware(t *testing.T) {
	l := New(1, 1)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(); rec.Code != http.StatusOK {
		t.Fatalf("first status = %d, want 200", rec.Code)
	}
	rec := do()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"forwarded for", "198.51.100.1, 10.0.0.1", "", "10.0.0.2:80", "198.51.100.1"},
		{"real ip", "", "198.51.100.2", "10.0.0.2:80", "198.51.100.2"},
		{"remote addr", "", "", "198.51.100.3:443", "198.51.100.3"},
		{"remote no port", "", "", "198.51.100.4", "198.51.100.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
