package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const testScope = "test-scope"

func newTestTracker(cfg Config) (*Tracker, *MemoryStore) {
	store := NewMemoryStore()
	return NewTracker(store, cfg, zerolog.Nop()), store
}

func TestUpdateFromHeaders_ValidHeaders(t *testing.T) {
	tests := []struct {
		name            string
		limitHeader     string
		remainHeader    string
		expectedLimit   int
		expectedRemain  int
		expectedHealthy bool
	}{
		{"healthy state", "166", "150", 166, 150, true},
		{"warning state", "166", "5", 166, 5, false},
		{"exhausted state", "166", "0", 166, 0, false},
		{"no limit header", "", "80", 0, 80, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker, store := newTestTracker(DefaultConfig())
			resetAt := time.Now().Add(10 * time.Second).Unix()

			headers := http.Header{}
			if tt.limitHeader != "" {
				headers.Set(HeaderLimit, tt.limitHeader)
			}
			headers.Set(HeaderRemaining, tt.remainHeader)
			headers.Set(HeaderReset, strconv.FormatInt(resetAt, 10))

			if err := tracker.UpdateFromHeaders(context.Background(), testScope, headers); err != nil {
				t.Fatalf("UpdateFromHeaders() error = %v", err)
			}

			state, err := store.Load(context.Background(), testScope)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if state.Limit != tt.expectedLimit {
				t.Errorf("Limit = %d, want %d", state.Limit, tt.expectedLimit)
			}
			if state.Remaining != tt.expectedRemain {
				t.Errorf("Remaining = %d, want %d", state.Remaining, tt.expectedRemain)
			}
			if state.IsHealthy != tt.expectedHealthy {
				t.Errorf("IsHealthy = %v, want %v", state.IsHealthy, tt.expectedHealthy)
			}
			if state.ResetAt.Unix() != resetAt {
				t.Errorf("ResetAt = %d, want %d", state.ResetAt.Unix(), resetAt)
			}
		})
	}
}

func TestUpdateFromHeaders_InvalidHeaders(t *testing.T) {
	tracker, store := newTestTracker(DefaultConfig())

	tests := []struct {
		name         string
		limitHeader  string
		remainHeader string
		resetHeader  string
		shouldError  bool
	}{
		{
			name:         "missing remaining header",
			remainHeader: "",
			resetHeader:  "1700000000",
			shouldError:  false, // Responses without rate limit headers are ignored
		},
		{
			name:         "invalid remaining header",
			remainHeader: "invalid",
			resetHeader:  "1700000000",
			shouldError:  true,
		},
		{
			name:         "missing reset header",
			remainHeader: "10",
			resetHeader:  "",
			shouldError:  true,
		},
		{
			name:         "invalid reset header",
			remainHeader: "10",
			resetHeader:  "soon",
			shouldError:  true,
		},
		{
			name:         "invalid limit header",
			limitHeader:  "lots",
			remainHeader: "10",
			resetHeader:  "1700000000",
			shouldError:  true,
		},
		{
			name:        "all headers missing",
			shouldError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			if tt.limitHeader != "" {
				headers.Set(HeaderLimit, tt.limitHeader)
			}
			if tt.remainHeader != "" {
				headers.Set(HeaderRemaining, tt.remainHeader)
			}
			if tt.resetHeader != "" {
				headers.Set(HeaderReset, tt.resetHeader)
			}

			err := tracker.UpdateFromHeaders(context.Background(), testScope, headers)

			if tt.shouldError && err == nil {
				t.Error("Expected error but got nil")
			}
			if !tt.shouldError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}

	if _, err := store.Load(context.Background(), testScope); err != ErrNoState {
		t.Errorf("Invalid headers should not record state, Load() error = %v", err)
	}
}

func TestShouldAllowRequest_NoState(t *testing.T) {
	tracker, _ := newTestTracker(DefaultConfig())

	allowed, err := tracker.ShouldAllowRequest(context.Background(), testScope)
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if !allowed {
		t.Error("Request should be allowed when no state is recorded")
	}
}

func TestShouldAllowRequest_Healthy(t *testing.T) {
	tracker, store := newTestTracker(DefaultConfig())
	store.Save(context.Background(), testScope, &RateLimitState{
		Remaining: 100,
		ResetAt:   time.Now().Add(10 * time.Second),
	})

	start := time.Now()
	allowed, err := tracker.ShouldAllowRequest(context.Background(), testScope)
	if err != nil || !allowed {
		t.Fatalf("ShouldAllowRequest() = %v, %v; want true, nil", allowed, err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Healthy request took %v, should not be delayed", elapsed)
	}
}

func TestShouldAllowRequest_Throttle(t *testing.T) {
	tracker, store := newTestTracker(Config{
		MaxWait:       time.Second,
		ThrottleDelay: 50 * time.Millisecond,
	})
	store.Save(context.Background(), testScope, &RateLimitState{
		Remaining: RemainingWarning - 1,
		ResetAt:   time.Now().Add(10 * time.Second),
	})

	start := time.Now()
	allowed, err := tracker.ShouldAllowRequest(context.Background(), testScope)
	if err != nil || !allowed {
		t.Fatalf("ShouldAllowRequest() = %v, %v; want true, nil", allowed, err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("Throttled request took %v, want >= 50ms", elapsed)
	}
}

func TestShouldAllowRequest_WaitsForReset(t *testing.T) {
	tracker, store := newTestTracker(Config{
		MaxWait:       5 * time.Second,
		ThrottleDelay: time.Millisecond,
	})
	store.Save(context.Background(), testScope, &RateLimitState{
		Remaining: 0,
		ResetAt:   time.Now().Add(200 * time.Millisecond),
	})

	start := time.Now()
	allowed, err := tracker.ShouldAllowRequest(context.Background(), testScope)
	if err != nil || !allowed {
		t.Fatalf("ShouldAllowRequest() = %v, %v; want true, nil", allowed, err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("Request waited %v, expected to wait for reset", elapsed)
	}
}

func TestShouldAllowRequest_BlocksWhenResetTooFar(t *testing.T) {
	tracker, store := newTestTracker(Config{
		MaxWait:       100 * time.Millisecond,
		ThrottleDelay: time.Millisecond,
	})
	store.Save(context.Background(), testScope, &RateLimitState{
		Remaining: 0,
		ResetAt:   time.Now().Add(time.Minute),
	})

	allowed, err := tracker.ShouldAllowRequest(context.Background(), testScope)
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if allowed {
		t.Error("Request should be blocked when reset is beyond MaxWait")
	}
}

func TestShouldAllowRequest_ContextCancelled(t *testing.T) {
	tracker, store := newTestTracker(Config{
		MaxWait:       time.Minute,
		ThrottleDelay: time.Millisecond,
	})
	store.Save(context.Background(), testScope, &RateLimitState{
		Remaining: 0,
		ResetAt:   time.Now().Add(30 * time.Second),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	allowed, err := tracker.ShouldAllowRequest(ctx, testScope)
	if allowed {
		t.Error("Request should not be allowed after cancellation")
	}
	if err != context.DeadlineExceeded {
		t.Errorf("Error = %v, want context.DeadlineExceeded", err)
	}
}

func TestScope(t *testing.T) {
	a := Scope("token-a")
	if a != Scope("token-a") {
		t.Error("Scope should be deterministic")
	}
	if a == Scope("token-b") {
		t.Error("Different tokens should have different scopes")
	}
	if len(a) != 16 {
		t.Errorf("Scope length = %d, want 16", len(a))
	}
}
