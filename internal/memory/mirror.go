// internal/memory/mirror.go
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const recentKeyFmt = "recent:%s"

// maxMirrored bounds the redis list so a chatty session cannot grow it
// without limit.
const maxMirrored = 100

// RedisMirror pushes fresh short-term writes into a per-session redis list
// with a TTL matching the short retention horizon, so sibling processes can
// see recent session activity without touching the in-memory buffers.
type RedisMirror struct {
	rdb *redis.Client
}

// NewRedisMirror wraps an existing redis client.
func NewRedisMirror(rdb *redis.Client) *RedisMirror {
	return &RedisMirror{rdb: rdb}
}

// MirrorRecent appends the records to the session's recent list.
func (m *RedisMirror) MirrorRecent(ctx context.Context, sessionID string, recs []Record, ttl time.Duration) error {
	key := fmt.Sprintf(recentKeyFmt, sessionID)

	values := make([]any, 0, len(recs))
	for _, rec := range recs {
		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record %s: %w", rec.ID, err)
		}
		values = append(values, raw)
	}

	pipe := m.rdb.Pipeline()
	pipe.RPush(ctx, key, values...)
	pipe.LTrim(ctx, key, -maxMirrored, -1)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror recent for %s: %w", sessionID, err)
	}
	return nil
}
