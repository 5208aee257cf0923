package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoState is returned by a Store that has nothing recorded for a scope.
var ErrNoState = errors.New("no rate limit state")

// Store persists rate limit state per scope.
type Store interface {
	Load(ctx context.Context, scope string) (*RateLimitState, error)
	Save(ctx context.Context, scope string, state *RateLimitState) error
}

// Scope derives a stable, non-reversible store scope from a bearer token.
// Intercom counts requests per app, and each token belongs to one app.
func Scope(bearerToken string) string {
	sum := sha256.Sum256([]byte(bearerToken))
	return hex.EncodeToString(sum[:8])
}

// MemoryStore keeps state in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]RateLimitState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]RateLimitState)}
}

func (m *MemoryStore) Load(_ context.Context, scope string) (*RateLimitState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[scope]
	if !ok {
		return nil, ErrNoState
	}
	return &state, nil
}

func (m *MemoryStore) Save(_ context.Context, scope string, state *RateLimitState) error {
	if state == nil {
		return fmt.Errorf("rate limit state cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[scope] = *state
	return nil
}

// Redis key suffixes for rate limit state storage.
const (
	RedisKeyPrefix     = "intercom:rate_limit:"
	redisKeyLimit      = ":limit"
	redisKeyRemaining  = ":remaining"
	redisKeyReset      = ":reset_timestamp"
	redisKeyLastUpdate = ":last_update"
)

// RedisStore shares state between processes that use the same Intercom app.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a store backed by redisClient.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: redisClient}
}

func redisKey(scope, suffix string) string {
	return RedisKeyPrefix + scope + suffix
}

// Load returns ErrNoState when no window has been recorded, or when the
// recorded window has expired from Redis.
func (s *RedisStore) Load(ctx context.Context, scope string) (*RateLimitState, error) {
	remaining, err := s.redis.Get(ctx, redisKey(scope, redisKeyRemaining)).Int()
	if err == redis.Nil {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, fmt.Errorf("get remaining: %w", err)
	}

	limit, err := s.redis.Get(ctx, redisKey(scope, redisKeyLimit)).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get limit: %w", err)
	}

	resetTimestamp, err := s.redis.Get(ctx, redisKey(scope, redisKeyReset)).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get reset timestamp: %w", err)
	}

	var lastUpdate time.Time
	lastUpdateStr, err := s.redis.Get(ctx, redisKey(scope, redisKeyLastUpdate)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	state := &RateLimitState{
		Limit:      limit,
		Remaining:  remaining,
		ResetAt:    time.Unix(resetTimestamp, 0),
		LastUpdate: lastUpdate,
	}
	state.UpdateHealth()

	return state, nil
}

// Save writes all fields in one pipeline. Keys expire a minute after the
// window resets so that old windows do not linger.
func (s *RedisStore) Save(ctx context.Context, scope string, state *RateLimitState) error {
	if state == nil {
		return fmt.Errorf("rate limit state cannot be nil")
	}

	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	ttl := state.TimeUntilReset() + time.Minute

	pipe := s.redis.Pipeline()
	pipe.Set(ctx, redisKey(scope, redisKeyLimit), state.Limit, ttl)
	pipe.Set(ctx, redisKey(scope, redisKeyRemaining), state.Remaining, ttl)
	pipe.Set(ctx, redisKey(scope, redisKeyReset), state.ResetAt.Unix(), ttl)
	pipe.Set(ctx, redisKey(scope, redisKeyLastUpdate), lastUpdateJSON, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}
