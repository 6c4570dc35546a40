package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/consultacep/cep-api/pkg/viacep"
)

// CEPCache stores resolved ViaCEP addresses in Redis so repeated lookups for
// the same code skip the upstream call. It implements viacep.Cache. Entries
// are written once with a fixed TTL and never invalidated explicitly.
type CEPCache struct {
	redis *RedisClient
}

// NewCEPCache creates a new CEPCache.
func NewCEPCache(redis *RedisClient) *CEPCache {
	return &CEPCache{redis: redis}
}

// key returns the Redis key for a postal code, e.g. "viacep:01310100".
func (c *CEPCache) key(code string) string {
	return fmt.Sprintf("viacep:%s", code)
}

// Get returns the cached address for code, or (nil, nil) on a miss.
func (c *CEPCache) Get(ctx context.Context, code string) (*viacep.Address, error) {
	jsonData, err := c.redis.Get(ctx, c.key(code))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var addr viacep.Address
	if err := json.Unmarshal([]byte(jsonData), &addr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached address: %w", err)
	}
	return &addr, nil
}

// Set stores the address under the code's key with the given TTL.
func (c *CEPCache) Set(ctx context.Context, code string, addr *viacep.Address, ttl time.Duration) error {
	jsonData, err := json.Marshal(addr)
	if err != nil {
		return fmt.Errorf("failed to marshal address: %w", err)
	}
	return c.redis.Set(ctx, c.key(code), string(jsonData), ttl)
}
