// Package ratelimit implements Intercom rate limit tracking and request pacing.
// It monitors the X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset
// headers so that a long paginated fetch slows down before Intercom starts
// answering 429.
package ratelimit

import (
	"time"
)

// Intercom rate limit response headers.
const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// Thresholds for rate limit decisions.
const (
	// RemainingCritical waits for the window reset (or blocks) when the
	// remaining request count falls below this value.
	RemainingCritical = 1

	// RemainingWarning applies throttling when the remaining request count
	// falls below this value.
	RemainingWarning = 10

	// RemainingHealthy indicates normal operation.
	RemainingHealthy = 50
)

// RateLimitState is the last rate limit window reported by Intercom for one
// app (scope).
type RateLimitState struct {
	// Limit is the number of requests allowed per window.
	Limit int `json:"limit"`

	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// ResetAt is when the current window ends.
	// Intercom sends it as epoch seconds.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was recorded.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= RemainingHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// DefaultState is assumed until Intercom has reported real numbers.
func DefaultState() *RateLimitState {
	now := time.Now()
	return &RateLimitState{
		Limit:      RemainingHealthy * 2,
		Remaining:  RemainingHealthy * 2,
		ResetAt:    now,
		LastUpdate: now,
		IsHealthy:  true,
	}
}

// IsStale returns true if the state data is older than the given duration.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalWait returns true if no requests remain in the window.
func (s *RateLimitState) NeedsCriticalWait() bool {
	return s.Remaining < RemainingCritical && s.TimeUntilReset() > 0
}

// NeedsThrottling returns true if the warning threshold has been crossed.
func (s *RateLimitState) NeedsThrottling() bool {
	return s.Remaining < RemainingWarning && !s.NeedsCriticalWait() && s.TimeUntilReset() > 0
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on current Remaining.
func (s *RateLimitState) UpdateHealth() {
	s.IsHealthy = s.Remaining >= RemainingHealthy
}
