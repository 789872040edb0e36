package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/bitrix24-client/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// DefaultTTL is how long lookup results stay cached.
const DefaultTTL = 5 * time.Minute

// Config holds the cache configuration.
type Config struct {
	TTL time.Duration
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{TTL: DefaultTTL}
}

// Manager handles caching operations with Redis backend.
type Manager struct {
	redis  *redis.Client
	config Config
	logger zerolog.Logger
}

// NewManager creates a new cache manager with Redis backend.
func NewManager(redisClient *redis.Client, cfg Config) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Manager{
		redis:  redisClient,
		config: cfg,
		logger: log.With().Str("component", logging.ComponentCache).Logger(),
	}
}

// TTL returns the configured entry lifetime.
func (m *Manager) TTL() time.Duration {
	return m.config.TTL
}

// Get retrieves a cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist or entry is expired.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	cacheKey := key.String()

	data, err := m.redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues("redis").Inc()
	return &entry, nil
}

// Set stores a cache entry with TTL based on the entry's Expires field.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheSize.WithLabelValues("redis").Add(float64(len(data)))
	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Invalidate removes every entry of a portal and returns how many were deleted.
func (m *Manager) Invalidate(ctx context.Context, portal string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := m.redis.Scan(ctx, cursor, PortalPattern(portal), 100).Result()
		if err != nil {
			CacheErrors.WithLabelValues("invalidate").Inc()
			return deleted, fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			n, err := m.redis.Del(ctx, keys...).Result()
			if err != nil {
				CacheErrors.WithLabelValues("invalidate").Inc()
				return deleted, fmt.Errorf("redis del: %w", err)
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return deleted, nil
}

// GetOrLoad returns the cached value for key, calling load on a miss and
// storing its result. Cache failures are logged and never returned: the
// loader result is authoritative. A nil manager always loads.
func GetOrLoad[T any](ctx context.Context, m *Manager, key CacheKey, load func(context.Context) (T, error)) (T, error) {
	if m == nil {
		return load(ctx)
	}

	entry, err := m.Get(ctx, key)
	switch {
	case err == nil:
		var v T
		decodeErr := entry.Decode(&v)
		if decodeErr == nil {
			return v, nil
		}
		m.logger.Warn().Err(decodeErr).Str("key", key.String()).Msg("Cached entry does not decode - reloading")
	case !errors.Is(err, ErrCacheMiss):
		m.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache get error")
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}

	newEntry, err := NewEntry(v, m.config.TTL)
	if err != nil {
		m.logger.Warn().Err(err).Str("key", key.String()).Msg("Failed to create cache entry")
		return v, nil
	}
	if err := m.Set(ctx, key, newEntry); err != nil {
		m.logger.Warn().Err(err).Str("key", key.String()).Msg("Failed to cache lookup")
	} else {
		m.logger.Debug().Str("key", key.String()).Dur("ttl", m.config.TTL).Msg("Cached lookup")
	}
	return v, nil
}
