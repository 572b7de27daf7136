// internal/orchestrator/cache.go
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"agentd/internal/agent"
)

// ResultCache serves repeat commands that opted in via use_cache. Only
// success results are cached; timeouts and errors are always re-dispatched.
type ResultCache interface {
	Get(ctx context.Context, key string) (*agent.Result, bool)
	Set(ctx context.Context, key string, res agent.Result)
}

// CacheKey derives a stable key from the command name and its params.
// Params marshal deterministically (encoding/json sorts map keys).
func CacheKey(cmd agent.Command) string {
	raw, err := json.Marshal(cmd.Params)
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", cmd.Params))
	}
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("result:%s:%s", cmd.Name, hex.EncodeToString(sum[:16]))
}

// RedisCache is the production ResultCache. Cache failures are log-only;
// a broken cache degrades to re-dispatching.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache wraps an existing redis client.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*agent.Result, bool) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[ResultCache] WARNING: get %s failed: %v", key, err)
		}
		return nil, false
	}
	var res agent.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		log.Printf("[ResultCache] WARNING: corrupt entry %s: %v", key, err)
		return nil, false
	}
	return &res, true
}

func (c *RedisCache) Set(ctx context.Context, key string, res agent.Result) {
	raw, err := json.Marshal(res)
	if err != nil {
		log.Printf("[ResultCache] WARNING: marshal %s failed: %v", key, err)
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		log.Printf("[ResultCache] WARNING: set %s failed: %v", key, err)
	}
}
