package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKey = "session:operator"

// SessionTTL is the inactivity window; the middleware refreshes it on
// every authenticated request.
const SessionTTL = 30 * time.Minute

func SetSession(rdb *redis.Client, token string, duration time.Duration) error {
	ctx := context.Background()
	return rdb.Set(ctx, sessionKey, token, duration).Err()
}

func GetSession(rdb *redis.Client) (string, error) {
	ctx := context.Background()
	return rdb.Get(ctx, sessionKey).Result()
}

func DeleteSession(rdb *redis.Client) error {
	ctx := context.Background()
	return rdb.Del(ctx, sessionKey).Err()
}
