package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/enki09/borg-collective/internal/models"
)

// inboxTTL caps how long undelivered frames wait for a session that never
// polls. Sessions are ephemeral browser tabs; a day is generous.
const inboxTTL = 24 * time.Hour

// RedisInbox delivers broadcast frames through per-session Redis sorted sets.
type RedisInbox struct {
	client *redis.Client
}

// NewRedisInbox creates a Redis-backed inbox.
func NewRedisInbox(ctx context.Context, redisURL string) (*RedisInbox, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisInbox{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisInbox) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisInbox) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// sessionInboxKey returns the key for a session's pending-frame sorted set.
func sessionInboxKey(sessionID string) string {
	return fmt.Sprintf("session:%s:inbox", sessionID)
}

// Deliver enqueues a frame in the session's inbox, scored by arrival time.
func (s *RedisInbox) Deliver(ctx context.Context, sessionID string, frame models.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	key := sessionInboxKey(sessionID)
	err = s.client.ZAdd(ctx, key, redis.Z{
		Score:  float64(time.Now().UnixMilli()),
		Member: string(data),
	}).Err()
	if err != nil {
		return err
	}

	s.client.Expire(ctx, key, inboxTTL)
	return nil
}

// Poll drains up to limit pending frames, oldest first.
func (s *RedisInbox) Poll(ctx context.Context, sessionID string, limit int) ([]models.Frame, error) {
	if limit <= 0 {
		limit = 100
	}

	key := sessionInboxKey(sessionID)
	results, err := s.client.ZPopMin(ctx, key, int64(limit)).Result()
	if err != nil {
		return nil, err
	}

	frames := make([]models.Frame, 0, len(results))
	for _, z := range results {
		raw, ok := z.Member.(string)
		if !ok {
			continue
		}
		var frame models.Frame
		if err := json.Unmarshal([]byte(raw), &frame); err != nil {
			continue
		}
		frames = append(frames, frame)
	}

	return frames, nil
}
