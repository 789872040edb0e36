package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/bitrix24-client/pkg/cache"
	"github.com/Sternrassler/bitrix24-client/pkg/client"
	"github.com/Sternrassler/bitrix24-client/pkg/credential"
	"github.com/Sternrassler/bitrix24-client/pkg/logging"
	"github.com/Sternrassler/bitrix24-client/pkg/pagination"
	"github.com/Sternrassler/bitrix24-client/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type config struct {
	Port      string
	RedisURL  string
	LogLevel  string
	LogPretty bool
	UserAgent string
	RateLimit float64
	RateBurst int
	CacheTTL  time.Duration
}

func loadConfig() config {
	return config{
		Port:      getEnv("PORT", "8080"),
		RedisURL:  getEnv("REDIS_URL", ""),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvBool("LOG_PRETTY", false),
		UserAgent: getEnv("USER_AGENT", client.DefaultConfig().UserAgent),
		RateLimit: getEnvFloat("BITRIX24_RATE_LIMIT", ratelimit.DefaultRequestsPerSecond),
		RateBurst: getEnvInt("BITRIX24_RATE_BURST", ratelimit.DefaultBurst),
		CacheTTL:  getEnvDuration("OPTIONS_CACHE_TTL", cache.DefaultTTL),
	}
}

func main() {
	cfg := loadConfig()
	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis is optional: without it lookups are not cached and trigger
	// registrations live in memory.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		var err error
		redisClient, err = newRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid REDIS_URL")
		}
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("redis", cfg.RedisURL).Msg("Failed to connect to Redis")
		}
		logger.Info().Str("redis", cfg.RedisURL).Msg("Connected to Redis")
	}

	resolver, err := credential.NewOAuth2Refresher(ctx, credential.FromEnv("BITRIX24_"), time.Time{}, "")
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid Bitrix24 credentials")
	}

	tracker := ratelimit.NewTracker(redisClient, ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit,
		Burst:             cfg.RateBurst,
	}, logging.NewLogger(logging.ComponentRateLimit))

	bitrix, err := client.New(client.RequestContext{
		Credentials: resolver,
		Limiter:     tracker,
	}, client.Config{
		UserAgent: cfg.UserAgent,
		Timeout:   client.DefaultConfig().Timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Bitrix24 client")
	}

	var cacheManager *cache.Manager
	if redisClient != nil {
		cacheManager = cache.NewManager(redisClient, cache.Config{TTL: cfg.CacheTTL})
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newServer(bitrix, redisClient, cacheManager, pagination.DefaultConfig()).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	logger.Info().
		Str("addr", srv.Addr).
		Str("user_agent", cfg.UserAgent).
		Float64("rate_limit", cfg.RateLimit).
		Int("rate_burst", cfg.RateBurst).
		Msg("Starting Bitrix24 node server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// newRedisClient accepts a redis:// URL or a plain host:port.
func newRedisClient(raw string) (*redis.Client, error) {
	if strings.Contains(raw, "://") {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, err
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: raw}), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}
