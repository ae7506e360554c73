package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemorySeen is a process-local Seen
type MemorySeen struct {
	keys map[string]struct{}
	mu   sync.Mutex
}

// NewMemorySeen creates an empty in-memory seen set
func NewMemorySeen() *MemorySeen {
	return &MemorySeen{keys: make(map[string]struct{})}
}

func (m *MemorySeen) Contains(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.keys[key]
	return ok, nil
}

func (m *MemorySeen) Mark(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.keys[key] = struct{}{}
	return nil
}

// Len returns the number of remembered keys
func (m *MemorySeen) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

type seenClient interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisSeen stores keys in Redis with a TTL, so a posting resurfaces once it
// has been absent for longer than the TTL.
type RedisSeen struct {
	client seenClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisSeen creates a Redis backed seen set
func NewRedisSeen(client redis.Cmdable, prefix string, ttl time.Duration) *RedisSeen {
	return &RedisSeen{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (r *RedisSeen) Contains(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", key, err)
	}
	return n > 0, nil
}

// Mark keeps the first-seen timestamp and TTL of a key that is already present
func (r *RedisSeen) Mark(ctx context.Context, key string) error {
	if err := r.client.SetNX(ctx, r.prefix+key, r.now().UTC().Format(time.RFC3339), r.ttl).Err(); err != nil {
		return fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return nil
}
