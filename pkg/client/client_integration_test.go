//go:build integration

package client

import (
	"context"
	"testing"
	"time"

	"github.com/Sternrassler/bitrix24-client/internal/testutil"
	"github.com/Sternrassler/bitrix24-client/pkg/credential"
	"github.com/Sternrassler/bitrix24-client/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestIntegration_QueryLimitSharedAcrossClients(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	mock := testutil.NewMockBitrix()
	defer mock.Close()

	limited := true
	mock.On("crm.deal.list", func(testutil.Call) testutil.MockResponse {
		if limited {
			limited = false
			return testutil.NewQueryLimitResponse()
		}
		return testutil.Result([]any{})
	})

	logger := zerolog.Nop()
	cfg := ratelimit.Config{RequestsPerSecond: 50, Burst: 50, Cooldown: time.Second}
	cred := credential.Static(credential.Webhook(mock.WebhookURL()))

	first, err := New(RequestContext{
		Credentials: cred,
		Logger:      &logger,
		Limiter:     ratelimit.NewTracker(redisClient, cfg, logger),
	}, DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	second, err := New(RequestContext{
		Credentials: cred,
		Logger:      &logger,
		Limiter:     ratelimit.NewTracker(redisClient, cfg, logger),
	}, DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	if _, err := first.Call(ctx, "POST", "crm.deal.list", nil, nil); !IsClass(err, ErrorClassRateLimit) {
		t.Fatalf("first Call() error = %v, want rate_limit", err)
	}

	start := time.Now()
	if _, err := second.Call(ctx, "POST", "crm.deal.list", nil, nil); err != nil {
		t.Fatalf("second Call() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 500*time.Millisecond {
		t.Errorf("second call sent after %v, expected to wait out the shared cooldown", elapsed)
	}
}
