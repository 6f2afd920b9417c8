package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/docwise/medkb/internal/domain"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "medkb:sources:"

// Redis is a shared cache backend for multi-instance deployments. Expiry is
// delegated to Redis TTLs; the size bound is left to the server's eviction
// policy. Errors degrade to cache misses so a Redis outage never breaks
// aggregation.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis-backed cache store.
func NewRedis(addr, password string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		ttl: ttl,
	}
}

// Ping verifies connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Get(ctx context.Context, key string) ([]domain.KnowledgeItem, bool) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("cache: redis get failed: %v", err)
		}
		return nil, false
	}

	var items []domain.KnowledgeItem
	if err := json.Unmarshal(raw, &items); err != nil {
		log.Printf("cache: invalid cached payload for %s: %v", key, err)
		return nil, false
	}
	return items, true
}

func (r *Redis) Set(ctx context.Context, key string, items []domain.KnowledgeItem) {
	raw, err := json.Marshal(items)
	if err != nil {
		log.Printf("cache: marshal failed for %s: %v", key, err)
		return
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, raw, r.ttl).Err(); err != nil {
		log.Printf("cache: redis set failed: %v", err)
	}
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
