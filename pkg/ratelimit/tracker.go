package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bitrix24_rate_limit_wait_seconds",
		Help:    "Time spent waiting for the portal request budget",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5},
	})

	rateLimitCooldownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bitrix24_rate_limit_cooldowns_total",
		Help: "Total number of cooldown windows opened after QUERY_LIMIT_EXCEEDED",
	})
)

// Config holds the pacing parameters.
type Config struct {
	RequestsPerSecond float64
	Burst             int
	Cooldown          time.Duration
}

// DefaultConfig returns the pacing of a standard Bitrix24 portal.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: DefaultRequestsPerSecond,
		Burst:             DefaultBurst,
		Cooldown:          DefaultCooldown,
	}
}

// Tracker gates requests per portal. The Redis client is optional; without it
// cooldowns are only visible to this process.
type Tracker struct {
	redis  *redis.Client
	config Config
	logger zerolog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	local    map[string]time.Time
}

// NewTracker creates a new tracker.
func NewTracker(redisClient *redis.Client, cfg Config, logger zerolog.Logger) *Tracker {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	return &Tracker{
		redis:    redisClient,
		config:   cfg,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
		local:    make(map[string]time.Time),
	}
}

func (t *Tracker) limiter(portal string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.limiters[portal]
	if !ok {
		l = rate.NewLimiter(rate.Limit(t.config.RequestsPerSecond), t.config.Burst)
		t.limiters[portal] = l
	}
	return l
}

// GetState returns the cooldown state of a portal.
func (t *Tracker) GetState(ctx context.Context, portal string) (*CooldownState, error) {
	state := &CooldownState{Portal: portal}

	if t.redis == nil {
		t.mu.Lock()
		state.Until = t.local[portal]
		t.mu.Unlock()
		return state, nil
	}

	val, err := t.redis.Get(ctx, CooldownKey(portal)).Result()
	if err == redis.Nil {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cooldown: %w", err)
	}

	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse cooldown: %w", err)
	}
	state.Until = time.UnixMilli(ms)
	return state, nil
}

// RecordLimitExceeded opens a cooldown window for the portal.
func (t *Tracker) RecordLimitExceeded(ctx context.Context, portal string) error {
	until := time.Now().Add(t.config.Cooldown)
	rateLimitCooldownsTotal.Inc()

	t.logger.Warn().
		Str("portal", portal).
		Dur("cooldown", t.config.Cooldown).
		Msg("Bitrix24 query limit exceeded - pausing portal")

	if t.redis == nil {
		t.mu.Lock()
		t.local[portal] = until
		t.mu.Unlock()
		return nil
	}

	if err := t.redis.Set(ctx, CooldownKey(portal), until.UnixMilli(), t.config.Cooldown).Err(); err != nil {
		return fmt.Errorf("store cooldown in redis: %w", err)
	}
	return nil
}

// Wait blocks until a request to the portal may be sent: first through any
// open cooldown window, then through the local token bucket. It returns the
// context error if ctx ends first.
func (t *Tracker) Wait(ctx context.Context, portal string) error {
	start := time.Now()
	defer func() {
		rateLimitWaitSeconds.Observe(time.Since(start).Seconds())
	}()

	state, err := t.GetState(ctx, portal)
	if err != nil {
		// Shared state unavailable; fall back to local pacing only.
		t.logger.Warn().Err(err).Str("portal", portal).Msg("Failed to read cooldown state")
	} else if remaining := state.Remaining(); remaining > 0 {
		t.logger.Debug().
			Str("portal", portal).
			Dur("remaining", remaining).
			Msg("Portal in cooldown - waiting")

		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return t.limiter(portal).Wait(ctx)
}
