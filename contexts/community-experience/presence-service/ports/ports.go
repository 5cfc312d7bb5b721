package ports

import (
	"context"
	"time"
)

// KV is the ephemeral presence keyspace. Implementations must apply value and
// TTL atomically, and expired entries must read as absent. Scan matches by
// key prefix.
type KV interface {
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	MGet(ctx context.Context, keys []string) (map[string]string, error)
	Delete(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Scan(ctx context.Context, prefix string) ([]string, error)
}
