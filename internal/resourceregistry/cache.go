package resourceregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is an optional read-through cache sitting in front of Store reloads,
// used when more than one orchestrator process shares a single registry
// (§6.1). It is adapted from the TTL-based in-process cache this module's
// registry descends from, backed here by Redis so the cached snapshot can be
// shared across processes instead of per-process memory.
type Cache interface {
	// Get returns the cached snapshot payload and whether it was present
	// and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores the snapshot payload with the given TTL.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

// RedisCache implements Cache on top of a redis.Client.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache constructs a RedisCache.
func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// Get returns the cached payload for key, if present and unexpired.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

// Set stores payload under key with the given TTL.
func (c *RedisCache) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("resourceregistry: redis set %q: %w", key, err)
	}
	return nil
}

// cachePayload is the JSON wire format stored in Cache. It round-trips
// through Registry.reload: load(save(R)) == R up to event ordering (§8).
type cachePayload struct {
	Resources    []*Resource         `json:"resources"`
	Fabrications []*KnownFabrication `json:"fabrications"`
}

func encodeSnapshot(resources []*Resource, fabrications []*KnownFabrication) ([]byte, error) {
	return json.Marshal(cachePayload{Resources: resources, Fabrications: fabrications})
}

func decodeSnapshot(payload []byte) ([]*Resource, []*KnownFabrication, error) {
	var p cachePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, nil, fmt.Errorf("resourceregistry: decode cached snapshot: %w", err)
	}
	return p.Resources, p.Fabrications, nil
}

// NoopCache is a Cache that never hits, used when no distributed cache is
// configured; the registry then always reloads from Store on each periodic
// sync.
type NoopCache struct{}

// Get always misses.
func (NoopCache) Get(context.Context, string) ([]byte, bool) { return nil, false }

// Set discards the payload.
func (NoopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
