package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestNewTracker_Defaults(t *testing.T) {
	tr := NewTracker(nil, Config{}, zerolog.Nop())
	if tr.config.RequestsPerSecond != DefaultRequestsPerSecond {
		t.Errorf("RequestsPerSecond = %v, want %v", tr.config.RequestsPerSecond, DefaultRequestsPerSecond)
	}
	if tr.config.Burst != DefaultBurst {
		t.Errorf("Burst = %v, want %v", tr.config.Burst, DefaultBurst)
	}
	if tr.config.Cooldown != DefaultCooldown {
		t.Errorf("Cooldown = %v, want %v", tr.config.Cooldown, DefaultCooldown)
	}
}

func TestTracker_GetState_NoCooldown(t *testing.T) {
	_, client := newMiniRedis(t)
	tr := NewTracker(client, DefaultConfig(), zerolog.Nop())

	state, err := tr.GetState(context.Background(), "x.bitrix24.com")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Active() {
		t.Error("expected no active cooldown")
	}
}

func TestTracker_RecordLimitExceeded_Redis(t *testing.T) {
	mr, client := newMiniRedis(t)
	tr := NewTracker(client, Config{Cooldown: 30 * time.Second}, zerolog.Nop())
	ctx := context.Background()

	if err := tr.RecordLimitExceeded(ctx, "x.bitrix24.com"); err != nil {
		t.Fatalf("RecordLimitExceeded() error = %v", err)
	}

	if !mr.Exists(CooldownKey("x.bitrix24.com")) {
		t.Fatal("cooldown key not written to redis")
	}
	if ttl := mr.TTL(CooldownKey("x.bitrix24.com")); ttl != 30*time.Second {
		t.Errorf("cooldown TTL = %v, want 30s", ttl)
	}

	// A second tracker sharing the same Redis sees the cooldown.
	other := NewTracker(client, DefaultConfig(), zerolog.Nop())
	state, err := other.GetState(ctx, "x.bitrix24.com")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !state.Active() {
		t.Error("expected shared cooldown to be active")
	}

	state, err = other.GetState(ctx, "y.bitrix24.com")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Active() {
		t.Error("cooldown must be scoped to its portal")
	}
}

func TestTracker_RecordLimitExceeded_Local(t *testing.T) {
	tr := NewTracker(nil, Config{Cooldown: time.Minute}, zerolog.Nop())
	ctx := context.Background()

	if err := tr.RecordLimitExceeded(ctx, "x.bitrix24.com"); err != nil {
		t.Fatalf("RecordLimitExceeded() error = %v", err)
	}
	state, err := tr.GetState(ctx, "x.bitrix24.com")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !state.Active() {
		t.Error("expected local cooldown to be active")
	}
}

func TestTracker_Wait_ContextCancelledDuringCooldown(t *testing.T) {
	tr := NewTracker(nil, Config{Cooldown: time.Minute}, zerolog.Nop())
	if err := tr.RecordLimitExceeded(context.Background(), "x.bitrix24.com"); err != nil {
		t.Fatalf("RecordLimitExceeded() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := tr.Wait(ctx, "x.bitrix24.com")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestTracker_Wait_WithinBurst(t *testing.T) {
	tr := NewTracker(nil, Config{RequestsPerSecond: 1, Burst: 5}, zerolog.Nop())
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := tr.Wait(ctx, "x.bitrix24.com"); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("burst requests took %v, expected no waiting", elapsed)
	}
}

func TestTracker_Wait_CooldownExpires(t *testing.T) {
	tr := NewTracker(nil, Config{Cooldown: 100 * time.Millisecond}, zerolog.Nop())
	ctx := context.Background()

	if err := tr.RecordLimitExceeded(ctx, "x.bitrix24.com"); err != nil {
		t.Fatalf("RecordLimitExceeded() error = %v", err)
	}

	start := time.Now()
	if err := tr.Wait(ctx, "x.bitrix24.com"); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("Wait() returned after %v, expected to wait out the cooldown", elapsed)
	}
}

func TestTracker_GetState_CorruptValue(t *testing.T) {
	mr, client := newMiniRedis(t)
	tr := NewTracker(client, DefaultConfig(), zerolog.Nop())

	mr.Set(CooldownKey("x.bitrix24.com"), "not-a-number")

	if _, err := tr.GetState(context.Background(), "x.bitrix24.com"); err == nil {
		t.Error("expected parse error for corrupt cooldown value")
	}
}
