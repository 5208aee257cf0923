package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "intercom_rate_limit_remaining",
		Help: "Requests remaining in the most recently observed Intercom rate limit window",
	})

	rateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intercom_rate_limit_waits_total",
		Help: "Total number of requests delayed until the rate limit window reset",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intercom_rate_limit_blocks_total",
		Help: "Total number of requests blocked because the window reset was too far away",
	})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intercom_rate_limit_throttles_total",
		Help: "Total number of requests throttled due to the warning threshold",
	})
)

// Config holds tracker configuration.
type Config struct {
	// MaxWait is the longest a request will wait for the window to reset.
	// Intercom windows are short, so waiting is usually cheaper than failing.
	MaxWait time.Duration

	// ThrottleDelay is the pause applied below the warning threshold.
	ThrottleDelay time.Duration
}

// DefaultConfig returns the default tracker configuration.
func DefaultConfig() Config {
	return Config{
		MaxWait:       10 * time.Second,
		ThrottleDelay: 1 * time.Second,
	}
}

// Tracker monitors Intercom rate limits and paces requests.
type Tracker struct {
	store  Store
	config Config
	logger zerolog.Logger
}

// NewTracker creates a new rate limit tracker. A nil store means in-memory.
func NewTracker(store Store, cfg Config, logger zerolog.Logger) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Tracker{
		store:  store,
		config: cfg,
		logger: logger,
	}
}

// GetState retrieves the current rate limit state for scope.
// Returns a default healthy state if nothing has been recorded yet.
func (t *Tracker) GetState(ctx context.Context, scope string) (*RateLimitState, error) {
	state, err := t.store.Load(ctx, scope)
	if errors.Is(err, ErrNoState) {
		t.logger.Debug().Str("scope", scope).Msg("No rate limit state recorded, assuming healthy")
		return DefaultState(), nil
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

// UpdateFromHeaders parses Intercom rate limit headers and records the state.
// Responses without rate limit headers are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, scope string, headers http.Header) error {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	resetStr := headers.Get(HeaderReset)
	if resetStr == "" {
		return fmt.Errorf("%s header missing", HeaderReset)
	}

	resetEpoch, err := strconv.ParseInt(resetStr, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderReset, err)
	}

	limit := 0
	if limitStr := headers.Get(HeaderLimit); limitStr != "" {
		if limit, err = strconv.Atoi(limitStr); err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderLimit, err)
		}
	}

	state := &RateLimitState{
		Limit:      limit,
		Remaining:  remain,
		ResetAt:    time.Unix(resetEpoch, 0),
		LastUpdate: time.Now(),
	}
	state.UpdateHealth()

	if err := t.store.Save(ctx, scope, state); err != nil {
		return err
	}

	rateLimitRemaining.Set(float64(remain))

	switch {
	case state.NeedsCriticalWait():
		t.logger.Warn().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("Intercom rate limit exhausted - next request waits for reset")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("Intercom rate limit low - requests will be throttled")
	default:
		t.logger.Debug().
			Int("limit", limit).
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Bool("is_healthy", state.IsHealthy).
			Msg("Intercom rate limit state updated")
	}

	return nil
}

// ShouldAllowRequest paces a request according to the recorded state.
// It waits for the window to reset when no requests remain and the reset is
// within MaxWait, and returns false when the reset is further away.
// Below the warning threshold it sleeps ThrottleDelay before allowing.
func (t *Tracker) ShouldAllowRequest(ctx context.Context, scope string) (bool, error) {
	state, err := t.GetState(ctx, scope)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.NeedsCriticalWait() {
		wait := state.TimeUntilReset()
		if wait > t.config.MaxWait {
			t.logger.Error().
				Int("remaining", state.Remaining).
				Dur("wait_duration", wait).
				Msg("Intercom rate limit exhausted - blocking request")
			rateLimitBlocksTotal.Inc()
			return false, nil
		}

		t.logger.Warn().
			Int("remaining", state.Remaining).
			Dur("wait_duration", wait).
			Msg("Intercom rate limit exhausted - waiting for reset")
		rateLimitWaitsTotal.Inc()
		if err := sleep(ctx, wait); err != nil {
			return false, err
		}
		return true, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Msg("Intercom rate limit warning - throttling request")
		rateLimitThrottlesTotal.Inc()
		if err := sleep(ctx, t.config.ThrottleDelay); err != nil {
			return false, err
		}
	}

	return true, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
