// Package dedupe tracks which content items the pipeline has already
// processed, keyed by the item idempotency key.
package dedupe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper answers whether an item was already processed and records new
// ones. Reprocessing the same channel must not produce duplicates.
type Deduper interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

const (
	keyPrefix  = "pipeline:seen:"
	defaultTTL = 90 * 24 * time.Hour
)

// RedisDeduper stores seen keys in Redis with a TTL. The TTL just bounds
// memory; collection windows are far shorter than it.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis-backed deduper.
func NewRedis(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: defaultTTL}
}

// Seen implements Deduper.
func (d *RedisDeduper) Seen(ctx context.Context, key string) (bool, error) {
	n, err := d.client.Exists(ctx, keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe exists: %w", err)
	}
	return n > 0, nil
}

// Mark implements Deduper.
func (d *RedisDeduper) Mark(ctx context.Context, key string) error {
	if err := d.client.Set(ctx, keyPrefix+key, 1, d.ttl).Err(); err != nil {
		return fmt.Errorf("dedupe mark: %w", err)
	}
	return nil
}

// Memory is an in-process deduper for tests and single-node runs.
type Memory struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemory creates an in-memory deduper.
func NewMemory() *Memory {
	return &Memory{seen: make(map[string]struct{})}
}

// Seen implements Deduper.
func (m *Memory) Seen(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seen[key]
	return ok, nil
}

// Mark implements Deduper.
func (m *Memory) Mark(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[key] = struct{}{}
	return nil
}
