package trigger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ErrNotRegistered is returned by a Store when a workflow has no subscription.
var ErrNotRegistered = errors.New("trigger not registered")

// Registration records an active event subscription.
type Registration struct {
	HandlerID string `json:"handlerId"`
	Event     string `json:"event"`
}

// Store persists registrations per workflow.
type Store interface {
	Get(ctx context.Context, workflowID string) (Registration, error)
	Put(ctx context.Context, workflowID string, reg Registration) error
	Delete(ctx context.Context, workflowID string) error
}

// RedisStore keeps registrations as hashes under bitrix24:trigger:{workflowID}.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: redisClient}
}

func redisKey(workflowID string) string {
	return "bitrix24:trigger:" + workflowID
}

// Get loads the registration of a workflow.
func (s *RedisStore) Get(ctx context.Context, workflowID string) (Registration, error) {
	fields, err := s.redis.HGetAll(ctx, redisKey(workflowID)).Result()
	if err != nil {
		return Registration{}, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(fields) == 0 || fields["handlerId"] == "" {
		return Registration{}, ErrNotRegistered
	}
	return Registration{HandlerID: fields["handlerId"], Event: fields["event"]}, nil
}

// Put stores the registration of a workflow.
func (s *RedisStore) Put(ctx context.Context, workflowID string, reg Registration) error {
	if err := s.redis.HSet(ctx, redisKey(workflowID), "handlerId", reg.HandlerID, "event", reg.Event).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

// Delete removes the registration of a workflow. Deleting a missing one is
// not an error.
func (s *RedisStore) Delete(ctx context.Context, workflowID string) error {
	if err := s.redis.Del(ctx, redisKey(workflowID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu   sync.RWMutex
	regs map[string]Registration
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{regs: make(map[string]Registration)}
}

// Get returns the registration of workflowID or ErrNotRegistered.
func (s *MemoryStore) Get(_ context.Context, workflowID string) (Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reg, ok := s.regs[workflowID]
	if !ok {
		return Registration{}, ErrNotRegistered
	}
	return reg, nil
}

// Put stores reg for workflowID, replacing any previous one.
func (s *MemoryStore) Put(_ context.Context, workflowID string, reg Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.regs[workflowID] = reg
	return nil
}

// Delete removes the registration of workflowID. Missing entries are ignored.
func (s *MemoryStore) Delete(_ context.Context, workflowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.regs, workflowID)
	return nil
}
