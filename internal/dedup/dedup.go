// Package dedup guards against redelivered webhook events. The platform
// redelivers on timeouts and manual replays; marking delivery ids keeps the
// side effects of one delivery at-most-once per process fleet.
package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Deduper interface {
	// Seen marks the delivery id and reports whether it had already been
	// marked. An error means the guard is unavailable; callers should
	// dispatch anyway rather than drop the event.
	Seen(ctx context.Context, deliveryID string) (bool, error)
}

const keyPrefix = "forgeflow:delivery:"

type redisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis returns a Deduper that marks delivery ids in redis with a TTL.
func NewRedis(client *redis.Client, ttl time.Duration) Deduper {
	return &redisDeduper{client: client, ttl: ttl}
}

func (d *redisDeduper) Seen(ctx context.Context, deliveryID string) (bool, error) {
	fresh, err := d.client.SetNX(ctx, keyPrefix+deliveryID, 1, d.ttl).Result()
	if err != nil {
		return false, err
	}
	return !fresh, nil
}

type noop struct{}

// Noop returns a Deduper that never marks anything. Used when no redis is
// configured: every delivery is dispatched.
func Noop() Deduper {
	return noop{}
}

func (noop) Seen(ctx context.Context, deliveryID string) (bool, error) {
	return false, nil
}
