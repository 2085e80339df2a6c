// Package dedup records which inbound webhook deliveries were already seen.
package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store claims keys. Claim reports first=true only for the first caller of
// a given key within the retention window. Release drops a claim so the key
// can be claimed again.
type Store interface {
	Claim(ctx context.Context, key string) (first bool, err error)
	Release(ctx context.Context, key string) error
}

// Redis claims keys with SET NX and a TTL.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "webhook:seen:"
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) Claim(ctx context.Context, key string) (bool, error) {
	return r.client.SetNX(ctx, r.prefix+key, time.Now().UTC().Format(time.RFC3339), r.ttl).Result()
}

// Release forgets key so a later delivery is processed again.
func (r *Redis) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// Nop treats every key as new.
type Nop struct{}

func (Nop) Claim(context.Context, string) (bool, error) { return true, nil }

func (Nop) Release(context.Context, string) error { return nil }
