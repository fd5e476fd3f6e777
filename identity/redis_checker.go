package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisChecker is a Checker that also reserves candidate ids with SETNX,
// closing the window between check and create when multiple processes
// allocate against the same project concurrently. The reservation expires
// so an abandoned allocation does not leak the id forever.
type RedisChecker struct {
	client         *redis.Client
	reservationTTL time.Duration
	logger         *zap.Logger
}

// DefaultReservationTTL is how long a candidate id stays reserved before a
// crashed allocator releases it implicitly.
const DefaultReservationTTL = 5 * time.Minute

// NewRedisChecker creates a reservation-backed checker.
func NewRedisChecker(client *redis.Client, logger *zap.Logger) *RedisChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisChecker{
		client:         client,
		reservationTTL: DefaultReservationTTL,
		logger:         logger.With(zap.String("component", "identity_redis_checker")),
	}
}

// Exists reserves the id if free and reports taken otherwise. SETNX
// returning false means someone else holds the reservation or the id was
// previously committed.
func (c *RedisChecker) Exists(ctx context.Context, id, projectID string) (bool, error) {
	key := reservationKey(projectID, id)
	ok, err := c.client.SetNX(ctx, key, "reserved", c.reservationTTL).Result()
	if err != nil {
		return false, fmt.Errorf("id reservation failed: %w", err)
	}
	return !ok, nil
}

// Commit makes a reservation permanent once the node is persisted.
func (c *RedisChecker) Commit(ctx context.Context, id, projectID string) error {
	key := reservationKey(projectID, id)
	if err := c.client.Set(ctx, key, "committed", 0).Err(); err != nil {
		return fmt.Errorf("id commit failed: %w", err)
	}
	return nil
}

// Release frees a reservation when allocation was abandoned.
func (c *RedisChecker) Release(ctx context.Context, id, projectID string) error {
	return c.client.Del(ctx, reservationKey(projectID, id)).Err()
}

func reservationKey(projectID, id string) string {
	return fmt.Sprintf("canvasflow:ids:%s:%s", projectID, id)
}
