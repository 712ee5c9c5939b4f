package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedSessionKeyPrefix = "lostfound:session:deny:"

// Denylist records sessions revoked before their natural expiry, keyed by
// issuance id.
type Denylist interface {
	Revoke(ctx context.Context, id string, ttl time.Duration) error
	IsRevoked(ctx context.Context, id string) (bool, error)
}

// RedisDenylist keeps revoked session ids in Redis until they would have
// expired anyway.
type RedisDenylist struct {
	client redis.Cmdable
}

func NewRedisDenylist(client redis.Cmdable) *RedisDenylist {
	return &RedisDenylist{client: client}
}

func (d *RedisDenylist) Revoke(ctx context.Context, id string, ttl time.Duration) error {
	if id == "" || ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, revokedSessionKeyPrefix+id, "1", ttl).Err()
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	_, err := d.client.Get(ctx, revokedSessionKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// NopDenylist never revokes anything; sessions live until they expire.
type NopDenylist struct{}

func (NopDenylist) Revoke(context.Context, string, time.Duration) error { return nil }

func (NopDenylist) IsRevoked(context.Context, string) (bool, error) { return false, nil }
