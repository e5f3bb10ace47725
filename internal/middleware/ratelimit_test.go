package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/credits/internal/auth"
	"github.com/DukeRupert/credits/internal/domain"
)

// =============================================================================
// RateLimiter Tests
// =============================================================================

// fakeClock lets tests move the limiter's window forward.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(max int, window time.Duration) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(max, window)
	rl.now = clock.Now
	return rl, clock
}

func TestRateLimiter_Allow(t *testing.T) {
	rl, _ := newTestLimiter(5, time.Minute)

	for i := 0; i < 5; i++ {
		if !rl.Allow("k") {
			t.Errorf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("k") {
		t.Error("6th request should be denied")
	}
	if !rl.Allow("other") {
		t.Error("a different key should have its own budget")
	}
}

func TestRateLimiter_WindowExpires(t *testing.T) {
	rl, clock := newTestLimiter(1, time.Minute)

	rl.Allow("k")
	if rl.Allow("k") {
		t.Fatal("second request should be denied")
	}
	if got := rl.TimeUntilReset("k"); got != time.Minute {
		t.Errorf("expected 1m until reset, got %v", got)
	}

	clock.Advance(time.Minute + time.Second)
	if !rl.Allow("k") {
		t.Error("request after window should be allowed")
	}
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl, clock := newTestLimiter(1, time.Minute)
	rl.Allow("a")
	rl.Allow("b")

	clock.Advance(30 * time.Second)
	rl.Allow("c")
	clock.Advance(45 * time.Second)

	if dropped := rl.Sweep(); dropped != 2 {
		t.Errorf("expected 2 expired keys, got %d", dropped)
	}
	if got := rl.TimeUntilReset("a"); got != 0 {
		t.Errorf("expected swept key to report 0, got %v", got)
	}
}

func TestRateLimiter_CleanupStops(t *testing.T) {
	rl := NewRateLimiter(1, time.Millisecond)
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		rl.Cleanup(done)
		close(finished)
	}()
	close(done)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Cleanup did not return after done was closed")
	}
}

// =============================================================================
// Rate Limit Middleware Tests
// =============================================================================

func TestRateLimitMiddleware_KeysByActor(t *testing.T) {
	rl, _ := newTestLimiter(1, time.Minute)
	mw := NewRateLimitMiddleware(rl, newTestLogger())
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	request := func(actor *auth.Actor) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/admin/accounts", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		if actor != nil {
			req = req.WithContext(auth.SetActor(req.Context(), actor))
		}
		rec := httptest.NewRecorder()
		mw.Limit(next).ServeHTTP(rec, req)
		return rec
	}

	admin1 := &auth.Actor{AccountID: uuid.New(), Tier: domain.SuperTierID}
	admin2 := &auth.Actor{AccountID: uuid.New(), Tier: domain.SuperTierID}

	if rec := request(admin1); rec.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rec.Code)
	}
	rec := request(admin1)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	// Same IP, different actor.
	if rec := request(admin2); rec.Code != http.StatusOK {
		t.Errorf("other actor: expected 200, got %d", rec.Code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		xri        string
		remoteAddr string
		want       string
	}{
		{name: "forwarded chain", xff: "203.0.113.5, 10.0.0.1", remoteAddr: "10.0.0.1:80", want: "203.0.113.5"},
		{name: "real ip", xri: " 198.51.100.7 ", remoteAddr: "10.0.0.1:80", want: "198.51.100.7"},
		{name: "remote addr", remoteAddr: "192.0.2.1:5555", want: "192.0.2.1"},
		{name: "remote addr without port", remoteAddr: "192.0.2.1", want: "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
