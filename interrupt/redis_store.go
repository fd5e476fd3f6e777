package interrupt

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultSessionTTL bounds how long a session record lives without being
// touched, so crashed runs do not accumulate forever.
const DefaultSessionTTL = 24 * time.Hour

// transitionScript swaps the status only when the current value matches,
// keeping the compare and the set on the server so two racing interrupt
// requests cannot both observe running.
var transitionScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
	return 1
end
return 0
`)

// RedisStore is a SessionStore shared across processes.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore creates a redis-backed session store.
func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client: client,
		ttl:    DefaultSessionTTL,
		logger: logger.With(zap.String("component", "interrupt_redis_store")),
	}
}

func (s *RedisStore) Get(ctx context.Context, threadID string) (Status, bool, error) {
	val, err := s.client.Get(ctx, sessionKey(threadID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session read failed: %w", err)
	}
	return Status(val), true, nil
}

func (s *RedisStore) Put(ctx context.Context, threadID string, status Status) error {
	if err := s.client.Set(ctx, sessionKey(threadID), string(status), s.ttl).Err(); err != nil {
		return fmt.Errorf("session write failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Transition(ctx context.Context, threadID string, from, to Status) (bool, error) {
	res, err := transitionScript.Run(ctx, s.client,
		[]string{sessionKey(threadID)},
		string(from), string(to), s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("session transition failed: %w", err)
	}
	return res == 1, nil
}

func (s *RedisStore) Delete(ctx context.Context, threadID string) error {
	return s.client.Del(ctx, sessionKey(threadID)).Err()
}

func sessionKey(threadID string) string {
	return fmt.Sprintf("canvasflow:sessions:%s", threadID)
}
