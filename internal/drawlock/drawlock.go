// Package drawlock provides the cross-instance "draw is executing"
// lease. The database status compare-and-set already serializes
// executions against one database; the Redis lease additionally fences
// multi-instance deployments and carries a TTL so a crashed worker
// cannot wedge a draw forever.
package drawlock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockTTL = 5 * time.Minute

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// Locker acquires and releases per-draw execution leases.
type Locker struct {
	rdb *redis.Client
}

func NewLocker(rdb *redis.Client) *Locker {
	return &Locker{rdb: rdb}
}

func key(drawID string) string {
	return "fairdraw:executing:" + drawID
}

// Acquire takes the lease for drawID. It returns false when another
// execution already holds it.
func (l *Locker) Acquire(ctx context.Context, drawID string) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, key(drawID), time.Now().UTC().Format(time.RFC3339), lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire draw lock: %w", err)
	}
	return ok, nil
}

// Release drops the lease. Safe to call after a failed execution.
func (l *Locker) Release(ctx context.Context, drawID string) error {
	if err := l.rdb.Del(ctx, key(drawID)).Err(); err != nil {
		return fmt.Errorf("failed to release draw lock: %w", err)
	}
	return nil
}
